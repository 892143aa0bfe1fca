package stream

import (
	"context"
	"fmt"

	"github.com/kbukum/streamkit/component"
)

// Component wraps a Controller as a lifecycle-managed component.
type Component[Req, T any] struct {
	ctrl *Controller[Req, T]
}

var _ component.Component = (*Component[any, any])(nil)

// NewComponent adapts ctrl to component.Component.
func NewComponent[Req, T any](ctrl *Controller[Req, T]) *Component[Req, T] {
	return &Component[Req, T]{ctrl: ctrl}
}

// Controller returns the wrapped controller.
func (c *Component[Req, T]) Controller() *Controller[Req, T] { return c.ctrl }

// Name returns the stream name.
func (c *Component[Req, T]) Name() string { return "stream:" + c.ctrl.def.name() }

// Start starts the stream. A run that fails while starting is reported.
// The run keeps ctx values but not its cancellation: it lasts until Stop,
// so a registry start context bounded by a timeout does not end it.
func (c *Component[Req, T]) Start(ctx context.Context) error {
	c.ctrl.Start(context.WithoutCancel(ctx))
	if c.ctrl.Status() == StatusError {
		if err := c.ctrl.LastError(); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops the stream.
func (c *Component[Req, T]) Stop(_ context.Context) error {
	c.ctrl.Stop()
	return nil
}

// Health maps the controller status to a component health.
func (c *Component[Req, T]) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch status := c.ctrl.Status(); status {
	case StatusConnecting:
		h.Status = component.StatusDegraded
		h.Message = "connecting"
	case StatusError:
		h.Status = component.StatusUnhealthy
		h.Message = "stream failed"
		if err := c.ctrl.LastError(); err != nil {
			h.Message = err.Error()
		}
	default:
		h.Message = fmt.Sprintf("status %s", status)
	}
	return h
}
