package finalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pithecene-io/accord/api"
	"github.com/pithecene-io/accord/negotiate"
	"github.com/pithecene-io/accord/transport"
	"github.com/pithecene-io/accord/types"
)

type proposalEnvelope struct {
	FinalProposal *types.FinalProposal `json:"finalProposal"`
}

// Get loads the final proposal of a negotiation.
func (c *Client) Get(ctx context.Context, negotiationID string) (*types.FinalProposal, error) {
	resp, err := c.doer.Send(ctx, &api.Request{
		Method: http.MethodGet,
		Path:   proposalPath(negotiationID),
	})
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		return nil, api.NewFailure("get_final_proposal", msgGetFailed, err)
	}

	var env proposalEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, api.NewFailure("get_final_proposal", msgGetFailed, fmt.Errorf("decode final proposal: %w", err))
	}
	if env.FinalProposal == nil {
		return nil, api.NewFailure("get_final_proposal", msgGetFailed, errors.New("response carries no final proposal"))
	}
	return env.FinalProposal, nil
}

// Download fetches the final proposal text of a negotiation and delivers it
// through the client's transport mode.
func (c *Client) Download(ctx context.Context, negotiationID string) (*types.DeliveryResult, error) {
	header := http.Header{}
	header.Set("Accept", negotiate.MediaTypeText)

	resp, err := c.doer.Send(ctx, &api.Request{
		Method: http.MethodGet,
		Path:   proposalPath(negotiationID) + "/download",
		Header: header,
	})
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		failure := api.NewFailure("download_final_proposal", msgDownloadFailed, err)
		c.logger.Error("final proposal download failed", map[string]any{
			"negotiation_id": negotiationID,
			"error":          err.Error(),
		})
		return nil, failure
	}

	result, err := c.mode.Deliver(ctx, transport.Payload{
		Body:         resp.Body,
		Header:       resp.Header,
		FilenameHint: DownloadFilename(negotiationID),
		MediaType:    negotiate.MediaTypeText,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("final proposal delivered", map[string]any{
		"negotiation_id": negotiationID,
		"filename":       result.Filename,
		"mode":           string(result.Mode),
	})
	return result, nil
}

// DownloadFilename is the name used when a download response names no file.
func DownloadFilename(negotiationID string) string {
	return "final-proposal-" + negotiationID + ".md"
}

func proposalPath(negotiationID string) string {
	return "/final-proposals/" + url.PathEscape(negotiationID)
}
