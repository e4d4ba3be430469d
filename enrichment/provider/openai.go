package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ChatCompleter is the slice of the OpenAI client the classifier uses. *openai.ChatCompletionService
// satisfies it; tests substitute a fake.
type ChatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// NewOpenAIClient builds a client for api.openai.com or any OpenAI-compatible endpoint.
// SDK retries are disabled; CallWithRetry owns that policy.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &client
}

// RetryPolicy lists the wait before each retry. A class of error with no waits left is returned.
type RetryPolicy struct {
	RateLimitWaits   []time.Duration
	ServerErrorWaits []time.Duration
}

// DefaultRetryPolicy waits out per-minute rate-limit windows and backs off on server errors.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		RateLimitWaits:   []time.Duration{65 * time.Second, 100 * time.Second},
		ServerErrorWaits: []time.Duration{5 * time.Second, 30 * time.Second},
	}
}

// Limit keeps at most n waits per error class.
func (p RetryPolicy) Limit(n int) RetryPolicy {
	if n < 0 {
		n = 0
	}
	return RetryPolicy{
		RateLimitWaits:   p.RateLimitWaits[:min(n, len(p.RateLimitWaits))],
		ServerErrorWaits: p.ServerErrorWaits[:min(n, len(p.ServerErrorWaits))],
	}
}

// CallWithRetry runs call, retrying rate-limit and server errors per policy. Each class of
// error consumes its own waits. Waits end early when ctx is done.
func CallWithRetry[T any](ctx context.Context, policy RetryPolicy, call func(context.Context) (T, error)) (T, error) {
	var zero T
	var rateLimited, serverFailed int
	for {
		v, err := call(ctx)
		if err == nil {
			return v, nil
		}

		var wait time.Duration
		switch {
		case isRateLimitError(err) && rateLimited < len(policy.RateLimitWaits):
			wait = policy.RateLimitWaits[rateLimited]
			rateLimited++
		case isServerError(err) && serverFailed < len(policy.ServerErrorWaits):
			wait = policy.ServerErrorWaits[serverFailed]
			serverFailed++
		default:
			return zero, err
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

func statusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if code := statusCode(err); code != 0 {
		return code == http.StatusTooManyRequests
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	if code := statusCode(err); code != 0 {
		return code >= http.StatusInternalServerError
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "server_error")
}

func GenerateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	ensureStrictCompliance(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

// ensureStrictCompliance marks every object property required and closes objects to extra keys,
// as strict structured output demands.
func ensureStrictCompliance(schema map[string]interface{}) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
			requiredFields := make([]string, 0, len(properties))
			for propName := range properties {
				requiredFields = append(requiredFields, propName)
			}
			sort.Strings(requiredFields)
			if len(requiredFields) > 0 {
				schema[requiredKey] = requiredFields
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				ensureStrictCompliance(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]interface{}); ok {
		ensureStrictCompliance(items)
	}

	if additionalProps, ok := schema[additionalPropertiesKey].(map[string]interface{}); ok {
		ensureStrictCompliance(additionalProps)
	}
}
