package models

import "time"

// HeaderPair is one (name, value) entry of a recorded HTTP response. Order
// and duplicates are both significant and must round-trip exactly.
type HeaderPair struct {
	Name  string
	Value []byte
}

// IdempotencyRecord is the (user_id, idempotency_key)-keyed row that backs
// the "start or return cached response" contract. ResponseStatusCode,
// ResponseHeaders and ResponseBody are nil/zero until the originating
// request completes and calls SaveResponse.
type IdempotencyRecord struct {
	UserID             string
	IdempotencyKey     string
	ResponseStatusCode *int16
	ResponseHeaders    []HeaderPair
	ResponseBody       []byte
	CreatedAt          time.Time
}
