package kratos

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	kratosclient "github.com/ory/kratos-client-go"

	"account-service/app/domain"
)

const fallbackMessage = "Identity provider request failed"

// errorPayload covers both Kratos error envelopes and flows returned with a 4xx status
type errorPayload struct {
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error"`
	UI *struct {
		Messages []uiText `json:"messages"`
		Nodes    []struct {
			Messages []uiText `json:"messages"`
		} `json:"nodes"`
	} `json:"ui"`
}

type uiText struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// Message patterns, matched against the lowercased provider text.
// Order matters: the first matching group wins.
var messageReasons = []struct {
	reason   domain.GatewayReason
	patterns []string
}{
	{domain.ReasonAlreadyRegistered, []string{"exists already", "already exists", "already registered", "user exists"}},
	{domain.ReasonInvalidPassword, []string{
		"data breaches", "too similar", "password length must be", "password policy",
		"password can not be used", "password must",
	}},
	{domain.ReasonNotFound, []string{
		"user not found", "email not found", "account not found", "identity not found",
		"does not exist", "no account", "unknown email",
	}},
	{domain.ReasonInvalidOrExpired, []string{
		"invalid or has already been used", "credentials are invalid", "expired", "invalid session",
		"no active session", "not valid", "privileged session",
	}},
	{domain.ReasonUnavailable, []string{"connection refused", "timeout", "service unavailable", "no such host"}},
}

// classifyError turns a Kratos SDK error into a tagged gateway error.
// This is the only place provider error text is interpreted.
func classifyError(err error, httpResp *http.Response, operation string) *domain.GatewayError {
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}

	message := providerMessage(err)
	reason := reasonFromMessage(message)
	if reason == domain.ReasonUnknown {
		reason = reasonFromStatus(getHTTPStatus(httpResp))
	}
	if reason == domain.ReasonUnknown && httpResp == nil && !isOpenAPIError(err) {
		reason = domain.ReasonUnavailable
	}

	if message == "" {
		message = fallbackMessage
	}

	return domain.NewGatewayError(reason, operation, message, err)
}

// classifyUIMessage handles flows that come back with a 2xx status but carry error messages
func classifyUIMessage(ui *kratosclient.UiContainer, operation string) *domain.GatewayError {
	message := uiErrorText(ui)
	if message == "" {
		return nil
	}

	reason := reasonFromMessage(message)
	if reason == domain.ReasonUnknown {
		reason = domain.ReasonInvalidOrExpired
	}
	return domain.NewGatewayError(reason, operation, message, nil)
}

func providerMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *kratosclient.GenericOpenAPIError
	if errors.As(err, &apiErr) {
		if message := payloadMessage(apiErr.Body()); message != "" {
			return message
		}
		return ""
	}

	return err.Error()
}

func payloadMessage(body []byte) string {
	var payload errorPayload
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}

	if payload.UI != nil {
		for _, msg := range payload.UI.Messages {
			if msg.Type == "error" && msg.Text != "" {
				return msg.Text
			}
		}
		for _, node := range payload.UI.Nodes {
			for _, msg := range node.Messages {
				if msg.Type == "error" && msg.Text != "" {
					return msg.Text
				}
			}
		}
	}

	if payload.Error != nil {
		if payload.Error.Reason != "" {
			return payload.Error.Reason
		}
		return payload.Error.Message
	}

	return ""
}

func uiErrorText(ui *kratosclient.UiContainer) string {
	if ui == nil {
		return ""
	}
	for _, msg := range ui.GetMessages() {
		if msg.GetType() == "error" {
			return msg.GetText()
		}
	}
	for _, node := range ui.GetNodes() {
		for _, msg := range node.GetMessages() {
			if msg.GetType() == "error" {
				return msg.GetText()
			}
		}
	}
	return ""
}

func reasonFromMessage(message string) domain.GatewayReason {
	lower := strings.ToLower(message)
	if lower == "" {
		return domain.ReasonUnknown
	}
	for _, group := range messageReasons {
		if containsAny(lower, group.patterns) {
			return group.reason
		}
	}
	return domain.ReasonUnknown
}

// reasonFromStatus never yields ReasonNotFound: Kratos answers 404 for
// unknown or expired flows too, so only the message can say an account is missing.
func reasonFromStatus(status int) domain.GatewayReason {
	switch {
	case status == http.StatusConflict:
		return domain.ReasonAlreadyRegistered
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusGone:
		return domain.ReasonInvalidOrExpired
	case status >= http.StatusInternalServerError:
		return domain.ReasonUnavailable
	default:
		return domain.ReasonUnknown
	}
}

func isOpenAPIError(err error) bool {
	var apiErr *kratosclient.GenericOpenAPIError
	return errors.As(err, &apiErr)
}

// containsAny checks if the text contains any of the given substrings
func containsAny(text string, substrings []string) bool {
	for _, substring := range substrings {
		if strings.Contains(text, substring) {
			return true
		}
	}
	return false
}

func getHTTPStatus(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
