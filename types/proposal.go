// Package types defines the request and response values exchanged with the
// finalization service.
//
// Every value here is transient: it is created by a call and handed to the
// caller. Nothing is cached or persisted by the client.
//
//nolint:revive // types is a common Go package naming convention
package types

import "fmt"

// IdempotencyToken is an opaque caller-supplied value that lets the server
// collapse retries of the same finalize attempt. The zero value means
// "no token" and is never sent on the wire.
type IdempotencyToken string

// Derive returns the member token for position index within a batch.
// Tokens derived from the same base are pairwise distinct by index.
func (t IdempotencyToken) Derive(index int) IdempotencyToken {
	return IdempotencyToken(fmt.Sprintf("%s:%d", t, index))
}

// IsZero reports whether no token was supplied.
func (t IdempotencyToken) IsZero() bool {
	return t == ""
}

// FinalProposal is the artifact produced by a successful finalization.
type FinalProposal struct {
	FinalID       string   `json:"finalId" yaml:"final_id" msgpack:"final_id"`
	NegotiationID string   `json:"negotiationId,omitempty" yaml:"negotiation_id,omitempty" msgpack:"negotiation_id,omitempty"`
	ProposalID    string   `json:"proposalId,omitempty" yaml:"proposal_id,omitempty" msgpack:"proposal_id,omitempty"`
	TopicKey      string   `json:"topicKey,omitempty" yaml:"topic_key,omitempty" msgpack:"topic_key,omitempty"`
	Content       string   `json:"content" yaml:"content" msgpack:"content"`
	Participants  []string `json:"participants" yaml:"participants" msgpack:"participants"`
	DerivedFrom   []string `json:"derivedFrom" yaml:"derived_from" msgpack:"derived_from"`
}

// FinalizeOutcome is the normalized response of one finalize call.
// Success=false with a nil error from the caller's perspective is a soft
// failure: the request completed but the server declined.
type FinalizeOutcome struct {
	Success     bool           `json:"success" yaml:"success"`
	Message     string         `json:"message" yaml:"message"`
	ArtifactRef *FinalProposal `json:"finalProposal,omitempty" yaml:"final_proposal,omitempty"`
}

// BatchMember records the settled result of one member of a batch.
type BatchMember struct {
	Index      int              `json:"index" yaml:"index"`
	ProposalID string           `json:"proposal_id" yaml:"proposal_id"`
	Token      IdempotencyToken `json:"token" yaml:"token"`
	Outcome    *FinalizeOutcome `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Err        error            `json:"-" yaml:"-"`
}

// OK reports whether the member resolved and the server reported success.
func (m BatchMember) OK() bool {
	return m.Err == nil && m.Outcome != nil && m.Outcome.Success
}

// Message returns the user-facing text for the member's result.
func (m BatchMember) Message() string {
	switch {
	case m.Err != nil:
		return m.Err.Error()
	case m.Outcome != nil:
		return m.Outcome.Message
	default:
		return ""
	}
}

// BatchResult summarizes a batch of concurrent finalize calls.
// It is a summary, not a patch: callers refresh their own lists afterwards.
type BatchResult struct {
	OK     int `json:"ok" yaml:"ok"`
	Failed int `json:"failed" yaml:"failed"`
	// BaseToken is the token member tokens were derived from.
	BaseToken IdempotencyToken `json:"base_token" yaml:"base_token"`
	Members   []BatchMember    `json:"members,omitempty" yaml:"members,omitempty"`
}

// Total returns the number of members in the batch.
func (r BatchResult) Total() int {
	return r.OK + r.Failed
}
