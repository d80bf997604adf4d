package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// HTTPResult captures HTTP response details for test assertions
type HTTPResult struct {
	Code    int
	Error   error
	Headers http.Header
	Body    []byte
}

// Header represents an HTTP header key-value pair
type Header struct {
	Key   string
	Value string
}

// ContentTypeJSON returns a header for JSON content type
func ContentTypeJSON() Header {
	return Header{
		Key:   "Content-Type",
		Value: "application/json",
	}
}

// ContentTypeForm returns a header for form-urlencoded content type
func ContentTypeForm() Header {
	return Header{
		Key:   "Content-Type",
		Value: "application/x-www-form-urlencoded",
	}
}

// Bearer returns an Authorization header carrying the given token
func Bearer(token string) Header {
	return Header{
		Key:   "Authorization",
		Value: "Bearer " + token,
	}
}

// BasicAuth returns an Authorization header with operator credentials
func BasicAuth(handle string, password string) Header {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth(handle, password)
	return Header{
		Key:   "Authorization",
		Value: req.Header.Get("Authorization"),
	}
}

// OperatorAuth returns Basic credentials for TestOperator
func OperatorAuth() Header {
	return BasicAuth(TestOperator, TestOperatorPassword)
}

// ExpectStatus validates the HTTP status code and fails the test if it doesn't match
func ExpectStatus(
	t *testing.T,
	expected int,
	result HTTPResult,
) {
	t.Helper()
	if result.Error != nil {
		t.Fatalf("request error: %v", result.Error)
	}
	if result.Code != expected {
		t.Fatalf("expected status %d, got %d. Body: %s", expected, result.Code, string(result.Body))
	}
}

// ExpectDetail validates an error response and its detail message
func ExpectDetail(
	t *testing.T,
	expectedCode int,
	expectedDetail string,
	result HTTPResult,
) {
	t.Helper()
	if result.Code != expectedCode {
		t.Fatalf("expected status %d, got %d. Body: %s", expectedCode, result.Code, string(result.Body))
	}
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(result.Body, &body); err != nil {
		t.Fatalf("failed to decode error body: %v\n%s", err, string(result.Body))
	}
	if body.Detail != expectedDetail {
		t.Fatalf("expected detail %q, got %q", expectedDetail, body.Detail)
	}
}

// Do performs a request with the given method and optionally decodes the JSON response
func Do(
	router http.Handler,
	method string,
	url string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	res := httptest.NewRecorder()
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}
	router.ServeHTTP(res, req)

	if response != nil && res.Body.Len() > 0 {
		if err := json.Unmarshal(res.Body.Bytes(), response); err != nil {
			return HTTPResult{
				Code:    res.Code,
				Error:   fmt.Errorf("failed to decode JSON: %v\n%s", err, res.Body.String()),
				Headers: res.Header(),
				Body:    res.Body.Bytes(),
			}
		}
	}

	return HTTPResult{Code: res.Code, Headers: res.Header(), Body: res.Body.Bytes()}
}

// Get performs a GET request and optionally decodes JSON response
func Get(
	router http.Handler,
	url string,
	response any,
	headers ...Header,
) HTTPResult {
	return Do(router, http.MethodGet, url, "", response, headers...)
}

// Post performs a POST request and optionally decodes JSON response
func Post(
	router http.Handler,
	url string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	return Do(router, http.MethodPost, url, body, response, headers...)
}

// PostForm performs a POST with form-urlencoded body
func PostForm(
	router http.Handler,
	urlPath string,
	values url.Values,
	response any,
) HTTPResult {
	return Post(router, urlPath, values.Encode(), response, ContentTypeForm())
}

// PostJSON performs a POST with JSON body
func PostJSON(
	router http.Handler,
	urlPath string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	return Post(router, urlPath, body, response, append(headers, ContentTypeJSON())...)
}

// PatchJSON performs a PATCH with JSON body
func PatchJSON(
	router http.Handler,
	urlPath string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	return Do(router, http.MethodPatch, urlPath, body, response, append(headers, ContentTypeJSON())...)
}

// Delete performs a DELETE request
func Delete(
	router http.Handler,
	urlPath string,
	headers ...Header,
) HTTPResult {
	return Do(router, http.MethodDelete, urlPath, "", nil, headers...)
}
