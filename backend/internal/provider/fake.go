package provider

import "context"

// FakeProvider returns scripted answers. Used by tests and offline runs;
// it honors context cancellation like a real backend would.
type FakeProvider struct {
	// Reply produces the answer for a request. When nil, Complete echoes
	// the last message back.
	Reply func(req *Request) (string, error)
}

// Name returns the provider identifier.
func (f *FakeProvider) Name() string {
	return "fake"
}

// Complete returns the scripted answer.
func (f *FakeProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Reply == nil {
		content := ""
		if len(req.Messages) > 0 {
			content = req.Messages[len(req.Messages)-1].Content
		}
		return &Response{Content: content, Model: req.Model}, nil
	}
	content, err := f.Reply(req)
	if err != nil {
		return nil, err
	}
	return &Response{Content: content, Model: req.Model}, nil
}
