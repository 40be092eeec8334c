package magaya

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrAccessDenied is returned by StartSession when Magaya rejects the
// credentials
var ErrAccessDenied = fmt.Errorf("magaya: access denied")

// Client speaks the Magaya Cloud SOAP API of one network
type Client struct {
	URL        string
	HTTPClient *http.Client
}

// NewClient creates a client for the given Magaya endpoint URL
func NewClient(url string) *Client {
	return &Client{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// call posts one SOAP request and decodes the envelope into out
func (c *Client) call(ctx context.Context, action string, in interface{}, out interface{}) error {
	body, err := xml.Marshal(in)
	if err != nil {
		return fmt.Errorf("magaya: failed to build %s request: %w", action, err)
	}

	envelope := fmt.Sprintf(
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>%s</soap:Body></soap:Envelope>`,
		body,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewBufferString(envelope))
	if err != nil {
		return fmt.Errorf("magaya: failed to create %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "#"+action)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("magaya: %s call failed: %w", action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("magaya: failed to read %s response: %w", action, err)
	}

	if err := xml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("magaya: failed to decode %s response: %w", action, err)
	}

	return nil
}

// StartSession authenticates against Magaya and returns the session
// access key
func (c *Client) StartSession(ctx context.Context, user, pass string) (string, error) {
	var out startSessionOut
	err := c.call(ctx, "StartSession", &startSessionIn{User: user, Pass: pass}, &out)
	if err != nil {
		return "", err
	}

	if out.Return == "" {
		return "", &ResponseError{Op: "StartSession", Missing: "return"}
	}
	if out.Return == "access_denied" {
		return "", ErrAccessDenied
	}
	if out.AccessKey == "" {
		return "", &ResponseError{Op: "StartSession", Missing: "access_key"}
	}

	return out.AccessKey, nil
}

// FirstTransByDate opens a paginated list-by-date query and returns the
// continuation cookie
func (c *Client) FirstTransByDate(ctx context.Context, q TransQuery) (*FirstPage, error) {
	in := &firstTransByDateIn{
		AccessKey:      q.AccessKey,
		Type:           q.Type,
		StartDate:      q.StartDate,
		EndDate:        q.EndDate,
		Flags:          q.Flags,
		RecordQuantity: 1,
		BackwardsOrder: 76,
		Function:       q.Function,
	}

	var out firstTransByDateOut
	if err := c.call(ctx, "GetFirstTransbyDateJS", in, &out); err != nil {
		return nil, err
	}

	if out.Return == "" {
		return nil, &ResponseError{Op: "GetFirstTransbyDateJS", Missing: "return"}
	}
	if out.Cookie == "" {
		return nil, &ResponseError{Op: "GetFirstTransbyDateJS", Missing: "cookie"}
	}
	if out.MoreResults == "" {
		return nil, &ResponseError{Op: "GetFirstTransbyDateJS", Missing: "more_results"}
	}

	return &FirstPage{Cookie: out.Cookie, MoreResults: out.MoreResults, Result: out.Return}, nil
}

// NextTransByDate follows a pagination cookie and returns the next page
func (c *Client) NextTransByDate(ctx context.Context, cookie string) (*NextPage, error) {
	var out nextTransByDateOut
	if err := c.call(ctx, "GetNextTransbyDate", &nextTransByDateIn{Cookie: cookie}, &out); err != nil {
		return nil, err
	}

	if out.Return == "" {
		return nil, &ResponseError{Op: "GetNextTransbyDate", Missing: "return"}
	}
	if out.MoreResults == "" {
		return nil, &ResponseError{Op: "GetNextTransbyDate", Missing: "more_results"}
	}

	return &NextPage{
		Cookie:       out.Cookie,
		TransListXML: out.TransListXML,
		MoreResults:  out.MoreResults,
	}, nil
}

// GetTransaction fetches the full XML document for one transaction number
func (c *Client) GetTransaction(ctx context.Context, accessKey, docType, flags, number string) (string, error) {
	in := &getTransactionIn{
		AccessKey: accessKey,
		Type:      docType,
		Flags:     flags,
		Number:    number,
	}

	var out getTransactionOut
	if err := c.call(ctx, "GetTransaction", in, &out); err != nil {
		return "", err
	}

	if out.Return == "" {
		return "", &ResponseError{Op: "GetTransaction", Missing: "return"}
	}
	if out.TransXML == "" {
		return "", &ResponseError{Op: "GetTransaction", Missing: "trans_xml"}
	}

	return out.TransXML, nil
}

// SetCustomFieldValue writes one custom field on a transaction and returns
// the server acknowledgement
func (c *Client) SetCustomFieldValue(ctx context.Context, accessKey, docType, number, internalName, value string) (string, error) {
	in := &setCustomFieldValueIn{
		AccessKey:         accessKey,
		Type:              docType,
		Number:            number,
		FieldInternalName: internalName,
		FieldValue:        value,
	}

	var out setCustomFieldValueOut
	if err := c.call(ctx, "SetCustomFieldValue", in, &out); err != nil {
		return "", err
	}

	if out.Return == "" {
		return "", &ResponseError{Op: "SetCustomFieldValue", Missing: "return"}
	}

	return out.Return, nil
}

// SetAttachment uploads a file onto a transaction. The payload is wrapped in
// Magaya's Attachment document and base64-encoded.
func (c *Client) SetAttachment(ctx context.Context, accessKey, docType, number string, data []byte, name, extension string) (string, error) {
	attachDoc, err := xml.Marshal(&attachment{
		Namespace: "http://www.magaya.com/XMLSchema/V1",
		Name:      name,
		Extension: extension,
		IsImage:   false,
		Data:      cdata{Value: base64.StdEncoding.EncodeToString(data)},
	})
	if err != nil {
		return "", fmt.Errorf("magaya: failed to build attachment: %w", err)
	}

	in := &setAttachmentIn{
		AccessKey: accessKey,
		Flags:     "4",
		Type:      docType,
		Number:    number,
		AttachXML: rawXML{Raw: string(attachDoc)},
	}

	var out setAttachmentOut
	if err := c.call(ctx, "SetAttachment", in, &out); err != nil {
		return "", err
	}

	if out.Return == "" {
		return "", &ResponseError{Op: "SetAttachment", Missing: "return"}
	}

	return out.Return, nil
}
