package cmd

import (
	"strconv"

	"github.com/pithecene-io/accord/types"
)

// finalizeView is the rendered result of one finalize call.
type finalizeView struct {
	ProposalID string `json:"proposal_id" yaml:"proposal_id"`
	Token      string `json:"token,omitempty" yaml:"token,omitempty"`
	Success    bool   `json:"success" yaml:"success"`
	Message    string `json:"message" yaml:"message"`
	FinalID    string `json:"final_id,omitempty" yaml:"final_id,omitempty"`
}

func newFinalizeView(proposalID string, token types.IdempotencyToken, o *types.FinalizeOutcome) finalizeView {
	v := finalizeView{
		ProposalID: proposalID,
		Token:      string(token),
		Success:    o.Success,
		Message:    o.Message,
	}
	if o.ArtifactRef != nil {
		v.FinalID = o.ArtifactRef.FinalID
	}
	return v
}

// memberView is one row of a batch.
type memberView struct {
	Index      int    `json:"index" yaml:"index"`
	ProposalID string `json:"proposal_id" yaml:"proposal_id"`
	Token      string `json:"token" yaml:"token"`
	Status     string `json:"status" yaml:"status"`
	Message    string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Member statuses.
const (
	statusOK       = "ok"
	statusDeclined = "declined"
	statusFailed   = "failed"
)

// batchView is the rendered batch summary. Members keep input order.
type batchView struct {
	BaseToken string       `json:"base_token" yaml:"base_token"`
	OK        int          `json:"ok" yaml:"ok"`
	Failed    int          `json:"failed" yaml:"failed"`
	Members   []memberView `json:"members" yaml:"members"`
}

func newBatchView(r types.BatchResult) batchView {
	v := batchView{
		BaseToken: string(r.BaseToken),
		OK:        r.OK,
		Failed:    r.Failed,
		Members:   make([]memberView, 0, len(r.Members)),
	}
	for _, m := range r.Members {
		v.Members = append(v.Members, memberView{
			Index:      m.Index,
			ProposalID: m.ProposalID,
			Token:      string(m.Token),
			Status:     memberStatus(m),
			Message:    m.Message(),
		})
	}
	return v
}

func memberStatus(m types.BatchMember) string {
	switch {
	case m.OK():
		return statusOK
	case m.Err == nil:
		return statusDeclined
	default:
		return statusFailed
	}
}

// TableHeaders implements render.Tabular.
func (v batchView) TableHeaders() []string {
	return []string{"#", "PROPOSAL", "TOKEN", "STATUS", "MESSAGE"}
}

// TableRows implements render.Tabular.
func (v batchView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Members))
	for _, m := range v.Members {
		rows = append(rows, []string{
			strconv.Itoa(m.Index),
			m.ProposalID,
			m.Token,
			m.Status,
			m.Message,
		})
	}
	return rows
}

// deliveryView summarizes a delivery whose bytes went elsewhere.
type deliveryView struct {
	Mode      string `json:"mode" yaml:"mode"`
	Filename  string `json:"filename" yaml:"filename"`
	MediaType string `json:"media_type" yaml:"media_type"`
	Location  string `json:"location" yaml:"location"`
	Bytes     int    `json:"bytes,omitempty" yaml:"bytes,omitempty"`
}

func newDeliveryView(d *types.DeliveryResult, location string) deliveryView {
	return deliveryView{
		Mode:      string(d.Mode),
		Filename:  d.Filename,
		MediaType: d.MediaType,
		Location:  location,
		Bytes:     len(d.Bytes()),
	}
}
