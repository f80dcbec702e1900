package api

import (
	"encoding/json"
	"fmt"
)

type statusFields struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Reason string `json:"reason"`
	Me     *Me    `json:"me"`
}

func (f *statusFields) code() string {
	if f == nil {
		return ""
	}
	if f.Code != "" {
		return f.Code
	}
	return f.Status
}

type statusEnvelope struct {
	statusFields
	Found    *bool         `json:"found"`
	ClientID string        `json:"clientId"`
	WAStatus *statusFields `json:"waStatus"`
}

// NormalizeStatus decodes a status response. The backend answers either
// with flat fields ({code, reason, me}) or nests them under waStatus; an
// explicit found:false, or a body without any code, means no session.
func NormalizeStatus(body []byte) (*Status, error) {
	var env statusEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}

	out := &Status{Found: true, ClientID: env.ClientID}
	if env.Found != nil && !*env.Found {
		out.Found = false
		return out, nil
	}

	fields := &env.statusFields
	if env.WAStatus != nil && env.WAStatus.code() != "" {
		fields = env.WAStatus
	}

	out.Code = fields.code()
	if out.Code == "" {
		out.Found = false
		return out, nil
	}
	out.Reason = fields.Reason
	if fields.Me != nil && fields.Me.ID != "" {
		me := *fields.Me
		out.Me = &me
	}
	return out, nil
}
