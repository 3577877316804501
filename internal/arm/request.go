package arm

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Default API versions
const (
	DefaultAPIVersion      = "2015-05-01"
	DefaultBatchAPIVersion = "2015-11-01"
)

// Request is one logical ARM call inside a batch.
// Two requests are equivalent when both fields match.
type Request struct {
	RelativeURL string `json:"relativeUrl"`
	HTTPMethod  string `json:"httpMethod"`
}

// NewGetRequest builds a GET request for path with the api-version query
func NewGetRequest(path, apiVersion string) Request {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{
		Path:     path,
		RawQuery: url.Values{"api-version": []string{apiVersion}}.Encode(),
	}
	return Request{
		RelativeURL: u.RequestURI(),
		HTTPMethod:  "GET",
	}
}

// batchRequest is the body of a POST to the batch endpoint
type batchRequest struct {
	Requests []Request `json:"requests"`
}

// batchResponse is the body returned by the batch endpoint
type batchResponse struct {
	Responses []batchResponseItem `json:"responses"`
}

// batchResponseItem is the result of one request of the batch, in request order
type batchResponseItem struct {
	Content        json.RawMessage   `json:"content"`
	Headers        map[string]string `json:"headers,omitempty"`
	HTTPStatusCode int               `json:"httpStatusCode"`
}

// errorBody is the ARM error envelope found in failed item content
type errorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// errorMessage extracts "code: message" from failed item content, if present
func errorMessage(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(content, &body); err != nil || body.Error == nil {
		return ""
	}
	if body.Error.Code == "" {
		return body.Error.Message
	}
	return body.Error.Code + ": " + body.Error.Message
}
