package workerproc

import (
	"context"
	"errors"
	"testing"

	"medrecords-backend/internal/queue"
)

type fakeProcessor struct {
	batchIDs  []string
	recordIDs []string
	err       error
}

func (f *fakeProcessor) ProcessCase(ctx context.Context, batchID, recordID string) error {
	f.batchIDs = append(f.batchIDs, batchID)
	f.recordIDs = append(f.recordIDs, recordID)
	return f.err
}

func TestParseMessage(t *testing.T) {
	payload := `{"batchId":"b1","recordId":"r1","requestId":"req1","enqueuedAt":"2026-08-30T22:00:00Z","version":1}`

	msg, meta, err := ParseMessage(payload)
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	if msg.BatchID != "b1" || msg.RecordID != "r1" || msg.RequestID != "req1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if meta.BodyLen != len(payload) || meta.BodySHA == "" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestParseMessageEmptyBody(t *testing.T) {
	_, _, err := ParseMessage("   ")
	var emptyErr ErrEmptyBody
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}

func TestParseMessageBadJSON(t *testing.T) {
	_, meta, err := ParseMessage("not json")
	var decodeErr ErrDecode
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if meta.BodyLen != len("not json") {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestParseMessageMissingRecordID(t *testing.T) {
	_, _, err := ParseMessage(`{"batchId":"b1","requestId":"req1"}`)
	var missingErr ErrMissingRecordID
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected ErrMissingRecordID, got %v", err)
	}
	if missingErr.RequestID != "req1" {
		t.Fatalf("expected request id carried through, got %+v", missingErr)
	}
}

func TestHandleMessage(t *testing.T) {
	proc := &fakeProcessor{}
	body := `{"batchId":"b1","recordId":"r1","requestId":"req1"}`

	if err := HandleMessage(context.Background(), proc, body); err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if len(proc.recordIDs) != 1 || proc.recordIDs[0] != "r1" || proc.batchIDs[0] != "b1" {
		t.Fatalf("unexpected processor calls: %+v", proc)
	}
}

func TestHandleMessageUsesParsedContext(t *testing.T) {
	proc := &fakeProcessor{}
	msg := queue.Message{BatchID: "b2", RecordID: "r2", RequestID: "req2"}
	ctx := WithParsedMessage(context.Background(), msg)

	if err := HandleMessage(ctx, proc, "ignored body"); err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if len(proc.recordIDs) != 1 || proc.recordIDs[0] != "r2" {
		t.Fatalf("expected parsed message from context, got %+v", proc)
	}
}

func TestHandleMessageWrapsProcessorError(t *testing.T) {
	cause := errors.New("record not found")
	proc := &fakeProcessor{err: cause}
	body := `{"batchId":"b1","recordId":"r1","requestId":"req1"}`

	err := HandleMessage(context.Background(), proc, body)
	var procErr ErrProcess
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if procErr.RecordID != "r1" || procErr.BatchID != "b1" {
		t.Fatalf("unexpected error detail: %+v", procErr)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause")
	}
}

func TestHandleMessageNilProcessor(t *testing.T) {
	if err := HandleMessage(context.Background(), nil, "{}"); err == nil {
		t.Fatal("expected error for missing processor")
	}
}
