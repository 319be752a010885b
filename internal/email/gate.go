package email

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
)

// RejectionMessage is the fixed reply for payloads that are not email threads.
const RejectionMessage = "Sorry, I can only process email chains."

// ErrNotEmailThread indicates the payload failed the structural check.
var ErrNotEmailThread = errors.New("input is not an email thread")

// object is a decoded JSON object whose members are inspected one at a time,
// so an unexpected type in an incidental field never fails the whole payload.
type object map[string]json.RawMessage

type rawAttachment struct {
	Filename  string `json:"filename"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// IsEmailThread reports whether raw is a JSON object with a non-empty
// messages array whose entries each carry a non-empty string sender and a
// string body. It inspects structure only and has no side effects.
func IsEmailThread(raw []byte) bool {
	_, err := Parse(raw)
	return err == nil
}

// Parse builds a Thread from raw after the structural check. Only messages,
// from, and body are checked; subject, recipients, timestamps, and attachments
// are taken when they have the expected type and ignored otherwise. Attachment
// data that is not valid base64 is kept with nil Data so extraction can report
// it.
func Parse(raw []byte) (*Thread, error) {
	root, ok := decodeObject(raw)
	if !ok {
		return nil, ErrNotEmailThread
	}

	var messages []json.RawMessage
	if err := json.Unmarshal(root["messages"], &messages); err != nil || len(messages) == 0 {
		return nil, ErrNotEmailThread
	}

	subject, _ := jsonString(root["subject"])
	thread := &Thread{
		Subject:  subject,
		Messages: make([]Message, 0, len(messages)),
	}

	for _, m := range messages {
		msg, ok := parseMessage(m)
		if !ok {
			return nil, ErrNotEmailThread
		}
		thread.Messages = append(thread.Messages, msg)
	}

	var attachments []json.RawMessage
	if json.Unmarshal(root["attachments"], &attachments) == nil {
		for _, a := range attachments {
			if att, ok := parseAttachment(a); ok {
				thread.Attachments = append(thread.Attachments, att)
			}
		}
	}

	return thread, nil
}

func parseMessage(raw json.RawMessage) (Message, bool) {
	m, ok := decodeObject(raw)
	if !ok {
		return Message{}, false
	}

	from, ok := jsonString(m["from"])
	if !ok || from == "" {
		return Message{}, false
	}

	body, ok := jsonString(m["body"])
	if !ok {
		return Message{}, false
	}

	timestamp, _ := jsonString(m["timestamp"])

	return Message{
		From:      from,
		To:        jsonStrings(m["to"]),
		Timestamp: timestamp,
		Body:      body,
	}, true
}

// parseAttachment keeps an attachment when it is an object. Fields of the
// wrong type are left empty.
func parseAttachment(raw json.RawMessage) (Attachment, bool) {
	a, ok := decodeObject(raw)
	if !ok {
		return Attachment{}, false
	}

	filename, _ := jsonString(a["filename"])
	mediaType, _ := jsonString(a["media_type"])

	var data []byte
	if encoded, ok := jsonString(a["data"]); ok {
		if decoded, err := base64.StdEncoding.DecodeString(encoded); err == nil {
			data = decoded
		}
	}

	return Attachment{Filename: filename, MediaType: mediaType, Data: data}, true
}

func decodeObject(raw []byte) (object, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, false
	}
	return o, true
}

// jsonString decodes raw only when it is a JSON string literal, so null,
// numbers, and missing fields are rejected.
func jsonString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// jsonStrings accepts a single string or an array and keeps its string
// entries.
func jsonStrings(raw json.RawMessage) []string {
	if s, ok := jsonString(raw); ok {
		return []string{s}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	var out []string
	for _, item := range items {
		if s, ok := jsonString(item); ok {
			out = append(out, s)
		}
	}
	return out
}

// Encode renders thread in the raw payload format accepted by Parse.
func Encode(thread *Thread) ([]byte, error) {
	rt := struct {
		Subject     string          `json:"subject,omitempty"`
		Messages    []Message       `json:"messages"`
		Attachments []rawAttachment `json:"attachments,omitempty"`
	}{
		Subject:  thread.Subject,
		Messages: thread.Messages,
	}

	for _, a := range thread.Attachments {
		rt.Attachments = append(rt.Attachments, rawAttachment{
			Filename:  a.Filename,
			MediaType: a.MediaType,
			Data:      base64.StdEncoding.EncodeToString(a.Data),
		})
	}

	return json.Marshal(rt)
}
