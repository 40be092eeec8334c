package lafactura

import "encoding/json"

// Finalization states reported by the verify-status endpoint
const (
	ProcessPending   = 0
	ProcessRejected  = 1
	ProcessConfirmed = 2
)

// Credentials authenticate one account against LaFactura.co
type Credentials struct {
	Username string
	Password string
}

// Status is the accept/reject outcome of a submission
type Status struct {
	Code int    `json:"code"`
	Text string `json:"text"`
}

// DocumentCodes carries the identifiers assigned to an accepted document.
// Process and URL are only present when the service finalized synchronously.
type DocumentCodes struct {
	TasCode string `json:"tascode"`
	CUFE    string `json:"CUFE"`
	Process int    `json:"process,omitempty"`
	URL     string `json:"URL,omitempty"`
}

// SubmitResponse is the body returned by the invoice endpoints.
// "documento" is the service's own spelling on submissions.
type SubmitResponse struct {
	InvoiceResult struct {
		Status    Status        `json:"status"`
		Documento DocumentCodes `json:"documento"`
	} `json:"invoiceResult"`
}

// Accepted reports whether the service took the document
func (r *SubmitResponse) Accepted() bool {
	return r.InvoiceResult.Status.Code == 200
}

// StatusResponse is the body returned by a verify-status poll
type StatusResponse struct {
	InvoiceResult struct {
		Document struct {
			Process int    `json:"process"`
			URL     string `json:"URL"`
		} `json:"document"`
	} `json:"invoiceResult"`
}

type verifyStatusRequest struct {
	VerifyStatus struct {
		TasCode string `json:"tascode"`
	} `json:"verifyStatus"`
}

type getRangesRequest struct {
	GetRanges struct {
		Mode string `json:"mode"`
		Type string `json:"type"`
	} `json:"getRanges"`
}

// Range is one numbering range granted to the account
type Range struct {
	Type   string `json:"type"`
	Prefix string `json:"prefix"`
}

// rangeList tolerates the service returning a single object where an
// account holds only one range
type rangeList []Range

func (l *rangeList) UnmarshalJSON(data []byte) error {
	var many []Range
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one Range
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = rangeList{one}
	return nil
}

// RangesResponse is the body returned by a getRanges query
type RangesResponse struct {
	GeneralResult struct {
		Ranges rangeList `json:"ranges"`
	} `json:"generalResult"`
}

// PrefixFor returns the prefix of the first range of the given type, or ""
// when the account holds none
func (r *RangesResponse) PrefixFor(rangeType string) string {
	for _, rng := range r.GeneralResult.Ranges {
		if rng.Type == rangeType {
			return rng.Prefix
		}
	}
	return ""
}
