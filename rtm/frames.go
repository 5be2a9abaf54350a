package rtm

import "encoding/json"

// frame is the outbound wire shape. ID is omitted for publish frames,
// which carry no correlation.
type frame struct {
	Action string `json:"action"`
	Body   any    `json:"body,omitempty"`
	ID     uint64 `json:"id,omitempty"`
}

// History asks the service to replay recent channel messages on
// subscribe, bounded by age in seconds and/or message count.
type History struct {
	Age   int `json:"age,omitempty"`
	Count int `json:"count,omitempty"`
}

type subscribeBody struct {
	Channel        string   `json:"channel"`
	SubscriptionID string   `json:"subscription_id"`
	History        *History `json:"history,omitempty"`
}

type unsubscribeBody struct {
	SubscriptionID string `json:"subscription_id"`
}

type publishBody struct {
	Channel string `json:"channel"`
	Message any    `json:"message"`
}

// envelope is the inbound wire shape common to all frame kinds.
type envelope struct {
	Action string          `json:"action"`
	ID     uint64          `json:"id,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
}

type dataBody struct {
	SubscriptionID string            `json:"subscription_id"`
	Messages       []json.RawMessage `json:"messages"`
}

type errorBody struct {
	SubscriptionID string `json:"subscription_id,omitempty"`
	Error          string `json:"error,omitempty"`
	Reason         string `json:"reason,omitempty"`
}
