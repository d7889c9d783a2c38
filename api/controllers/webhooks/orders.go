package webhooks

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/printbridge-backend/api/responses"
	"github.com/angelmondragon/printbridge-backend/api/validators"
	"github.com/angelmondragon/printbridge-backend/internal/intake"
	"github.com/angelmondragon/printbridge-backend/internal/signature"
	"github.com/angelmondragon/printbridge-backend/pkg/config"
	"github.com/angelmondragon/printbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/printbridge-backend/pkg/errors"
	"github.com/angelmondragon/printbridge-backend/pkg/logger"
	"github.com/angelmondragon/printbridge-backend/pkg/metrics"
	"github.com/angelmondragon/printbridge-backend/pkg/types"
)

const maxHeaderLen = 255

// Sender header dialects. The first non-empty header of each list wins.
var (
	topicHeaders      = []string{"X-WC-Webhook-Topic", "X-Shopify-Topic"}
	signatureHeaders  = []string{"X-WC-Webhook-Signature", "X-Shopify-Hmac-Sha256", "X-Webhook-Signature"}
	resourceIDHeaders = []string{"X-WC-Webhook-Resource-ID", "X-Shopify-Order-Id"}
	deliveryIDHeaders = []string{"X-WC-Webhook-Delivery-ID", "X-Shopify-Webhook-Id"}
	sourceHeaders     = []string{"X-WC-Webhook-Source", "X-Shopify-Shop-Domain"}
)

type orderPipeline interface {
	Process(ctx context.Context, d intake.Delivery) (intake.Result, error)
}

type signatureVerifier interface {
	Verify(body []byte, header string) signature.Result
}

// OrderWebhookParams wires the order webhook handler.
type OrderWebhookParams struct {
	Pipeline orderPipeline
	Verifier signatureVerifier
	Policy   signature.Policy
	Config   config.WebhooksConfig
	Metrics  *metrics.WebhookMetrics
	Logger   *logger.Logger
}

// OrderWebhook ingests storefront order created/updated deliveries. Every
// request that parses is acknowledged with 200 whatever the business outcome;
// only malformed, rejected or unpersisted deliveries get an error status.
func OrderWebhook(params OrderWebhookParams) http.HandlerFunc {
	logg := params.Logger
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if params.Pipeline == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		if params.Config.MaxBodyBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, params.Config.MaxBodyBytes)
		}
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodePayloadTooLarge, err, "read request body"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeMalformedPayload, err, "read request body"))
			return
		}

		platform := detectPlatform(r)
		topic := firstHeader(r, topicHeaders)
		resourceID := firstHeader(r, resourceIDHeaders)
		deliveryID := firstHeader(r, deliveryIDHeaders)
		ack := types.WebhookAck{
			Topic:      topic,
			Resource:   topicResource(topic),
			Event:      topicEvent(topic),
			ResourceID: resourceID,
		}
		if logg != nil {
			ctx = logg.WithDelivery(ctx, string(platform), topic, deliveryID)
		}

		if isPing(payload) {
			if logg != nil {
				logg.Info(ctx, "webhook ping acknowledged")
			}
			params.Metrics.IncDelivery(topic, "ping")
			ack.Success = true
			ack.Message = "Webhook ping acknowledged"
			responses.WriteAck(w, http.StatusOK, ack)
			return
		}

		sigResult := signature.Unconfigured
		if params.Verifier != nil {
			sigResult = params.Verifier.Verify(payload, firstHeader(r, signatureHeaders))
		}
		params.Metrics.IncSignature(string(sigResult))
		if !params.Policy.Allows(sigResult) {
			params.Metrics.IncDelivery(topic, "rejected")
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSignatureInvalid, signature.ErrSignatureInvalid, string(sigResult)))
			return
		}
		if sigResult != signature.Verified && logg != nil {
			logg.Warn(logg.WithField(ctx, "signature", sigResult), "processing unverified webhook")
		}

		var event types.OrderEvent
		if err := validators.DecodeJSON(payload, &event); err != nil {
			params.Metrics.IncDelivery(topic, "malformed")
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if ack.ResourceID == "" {
			ack.ResourceID = event.ID.String()
		}

		procCtx := ctx
		if params.Config.ProcessingTimeout > 0 {
			var cancel context.CancelFunc
			procCtx, cancel = context.WithTimeout(ctx, params.Config.ProcessingTimeout)
			defer cancel()
		}

		result, err := params.Pipeline.Process(procCtx, intake.Delivery{
			Event:      &event,
			Topic:      topic,
			Platform:   platform,
			DeliveryID: deliveryID,
			SourceURL:  firstHeader(r, sourceHeaders),
		})
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && pkgerrors.As(err) == nil {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "processing deadline exceeded")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ack.Success = true
		ack.Message = result.Message()
		responses.WriteAck(w, http.StatusOK, ack)
	}
}

func detectPlatform(r *http.Request) enums.Platform {
	if p := enums.ParsePlatform(chi.URLParam(r, "platform")); p != enums.PlatformUnknown {
		return p
	}
	switch {
	case r.Header.Get("X-WC-Webhook-Topic") != "" || r.Header.Get("X-WC-Webhook-Signature") != "":
		return enums.PlatformWooCommerce
	case r.Header.Get("X-Shopify-Topic") != "" || r.Header.Get("X-Shopify-Hmac-Sha256") != "":
		return enums.PlatformShopify
	default:
		return enums.PlatformUnknown
	}
}

func firstHeader(r *http.Request, names []string) string {
	for _, name := range names {
		if v := validators.SanitizeString(r.Header.Get(name), maxHeaderLen); v != "" {
			return v
		}
	}
	return ""
}

// Topics look like "order.created" (WooCommerce) or "orders/create" (Shopify).
func splitTopic(topic string) (string, string) {
	idx := strings.IndexAny(topic, "./")
	if idx < 0 {
		return topic, ""
	}
	return topic[:idx], topic[idx+1:]
}

func topicResource(topic string) string {
	resource, _ := splitTopic(topic)
	if resource == "" {
		return "order"
	}
	return resource
}

func topicEvent(topic string) string {
	_, event := splitTopic(topic)
	return event
}

// isPing reports WooCommerce's form-encoded test delivery sent when a webhook is saved.
func isPing(payload []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(payload), []byte("webhook_id="))
}
