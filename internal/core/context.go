package core

import "context"

type clientKey struct{}

// Client identifies who made a change. The web layer fills it in for every
// API request and mutations log it.
type Client struct {
	IP        string
	UserAgent string
}

// WithClient returns a copy of ctx carrying c.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFromContext returns the Client stored on ctx, or the zero Client.
func ClientFromContext(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c
}

// logArgs renders the non-empty fields as slog key/value pairs.
func (c Client) logArgs() []any {
	var args []any
	if c.IP != "" {
		args = append(args, "ip", c.IP)
	}
	if c.UserAgent != "" {
		args = append(args, "user_agent", c.UserAgent)
	}
	return args
}
