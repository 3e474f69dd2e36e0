package datagokr

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/clbanning/mxj/v2"

	"announcement_syncer/internal/domain"
)

// Decode parses a listing payload. XML is chosen when the body starts with
// '<' or the content type mentions xml; JSON otherwise.
func Decode(body []byte, contentType string) (any, error) {
	if isXML(body, contentType) {
		m, err := mxj.NewMapXml(bytes.TrimSpace(body))
		if err != nil {
			return nil, &ResponseParseError{Format: "xml", Err: err}
		}
		return map[string]any(m), nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &ResponseParseError{Format: "json", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ResponseParseError{Format: "json", Err: errors.New("trailing data after document")}
	}
	return doc, nil
}

func isXML(body []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "xml") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(body), []byte("<"))
}

// ExtractItems unwraps response.body.items.item. A missing container is an
// empty day; a single object becomes a one-element slice; nil and non-object
// entries are dropped.
func ExtractItems(doc any) ([]domain.RawRecord, error) {
	root, _ := doc.(map[string]any)
	if root == nil {
		return []domain.RawRecord{}, nil
	}

	if envelope, ok := root["OpenAPI_ServiceResponse"]; ok {
		return nil, gatewayError(envelope)
	}

	item := lookup(root, "response", "body", "items", "item")

	switch v := item.(type) {
	case map[string]any:
		return []domain.RawRecord{v}, nil
	case []any:
		records := make([]domain.RawRecord, 0, len(v))
		for _, entry := range v {
			if m, ok := entry.(map[string]any); ok && m != nil {
				records = append(records, m)
			}
		}
		return records, nil
	default:
		return []domain.RawRecord{}, nil
	}
}

func lookup(m map[string]any, path ...string) any {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return cur
}

func gatewayError(envelope any) error {
	env, _ := envelope.(map[string]any)
	header, _ := env["cmmMsgHeader"].(map[string]any)

	apiErr := &UpstreamAPIError{Code: "unknown", Message: "service response envelope"}
	if code, ok := domain.ScalarString(header["returnReasonCode"]); ok {
		apiErr.Code = code
	}
	if msg, ok := domain.ScalarString(header["returnAuthMsg"]); ok {
		apiErr.Message = msg
	} else if msg, ok := domain.ScalarString(header["errMsg"]); ok {
		apiErr.Message = msg
	}
	return apiErr
}
