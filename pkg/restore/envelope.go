// Copyright 2026 Thawd Authors
// SPDX-License-Identifier: Apache-2.0

// Package restore implements the cold-archive restore worker: an SQS consumer
// that resolves a user's archived result files and initiates tiered Glacier
// retrievals for them.
package restore

import (
	"encoding/json"
	"fmt"
)

// The notification envelope arrives triple-nested: the SQS body is a JSON
// object whose Message field holds a JSON-encoded string, whose default field
// holds another JSON-encoded string carrying the actual request.
type envelopeOuter struct {
	Message *string `json:"Message"`
}

type envelopeInner struct {
	Default *string `json:"default"`
}

// RestoreRequest is the payload of one restore notification. It lives only
// for the duration of processing a single message.
type RestoreRequest struct {
	UserID string `json:"user_id"`
}

// DecodeKind classifies why an envelope could not be decoded.
type DecodeKind int

const (
	// DecodeParse means a JSON document at some nesting level failed to parse.
	DecodeParse DecodeKind = iota
	// DecodeMissingField means a required key was absent or empty.
	DecodeMissingField
)

func (k DecodeKind) String() string {
	switch k {
	case DecodeParse:
		return "parse"
	case DecodeMissingField:
		return "missing_field"
	}
	return "unknown"
}

// DecodeError reports a malformed envelope. Level names the nesting level
// ("body", "Message", "default") at which decoding stopped.
type DecodeError struct {
	Kind  DecodeKind
	Level string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode envelope: %s at %q: %v", e.Kind, e.Level, e.Err)
	}
	return fmt.Sprintf("decode envelope: %s at %q", e.Kind, e.Level)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeRestoreRequest unwraps the triple-nested notification envelope and
// returns the validated request. Any parse failure or missing key at any
// level yields a *DecodeError; the message can never succeed on redelivery.
func DecodeRestoreRequest(body string) (RestoreRequest, error) {
	var outer envelopeOuter
	if err := json.Unmarshal([]byte(body), &outer); err != nil {
		return RestoreRequest{}, &DecodeError{Kind: DecodeParse, Level: "body", Err: err}
	}
	if outer.Message == nil {
		return RestoreRequest{}, &DecodeError{Kind: DecodeMissingField, Level: "Message"}
	}

	var inner envelopeInner
	if err := json.Unmarshal([]byte(*outer.Message), &inner); err != nil {
		return RestoreRequest{}, &DecodeError{Kind: DecodeParse, Level: "Message", Err: err}
	}
	if inner.Default == nil {
		return RestoreRequest{}, &DecodeError{Kind: DecodeMissingField, Level: "default"}
	}

	var req RestoreRequest
	if err := json.Unmarshal([]byte(*inner.Default), &req); err != nil {
		return RestoreRequest{}, &DecodeError{Kind: DecodeParse, Level: "default", Err: err}
	}
	if req.UserID == "" {
		return RestoreRequest{}, &DecodeError{Kind: DecodeMissingField, Level: "user_id"}
	}

	return req, nil
}
