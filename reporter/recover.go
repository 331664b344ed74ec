package reporter

import (
	"context"
	"errors"

	"go.uber.org/multierr"

	"github.com/justapithecus/rpreport/transport"
	"github.com/justapithecus/rpreport/types"
)

// RecoverFromFinishConflict inspects a response to a finish call and, when
// the service refused the finish because items are still open, cancels
// the items named in the message and stops the launch.
//
// It returns true when no conflict was found (no requests are made) or
// when the conflict named no usable item ids. It returns false once a
// cancellation was attempted for at least one orphaned item, even if the
// service never answered it. The launch is stopped with CANCELLED on
// every conflict.
//
// Each corrective call is attempted exactly once. Their errors are
// combined and returned; a failed cancellation does not prevent the rest.
func (c *Client) RecoverFromFinishConflict(ctx context.Context, resp *transport.Response) (bool, error) {
	if resp == nil {
		return true, nil
	}
	conflict, ok := DetectConflict(resp.Body)
	if !ok {
		return true, nil
	}
	c.collector.IncConflictDetected()

	var errs error
	ids, perr := ParseOrphanIDs(conflict.Message)
	if perr != nil {
		c.logger.Warn("conflict without usable id list", map[string]any{
			"launch_conflict": conflict.Launch,
			"message":         conflict.Message,
			"error":           perr.Error(),
		})
		// A message with no list at all is expected for some conflicts.
		if !errors.Is(perr, ErrNoIDList) {
			errs = multierr.Append(errs, perr)
		}
	}

	cancelled := 0
	for _, id := range ids {
		r, err := c.FinishItem(ctx, id, types.StatusCancelled, CancelDescription)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		if r != nil {
			cancelled++
			c.collector.IncItemCancelled()
		}
	}

	if _, err := c.ForceFinishLaunch(ctx, types.StatusCancelled); err != nil {
		errs = multierr.Append(errs, err)
	}

	c.logger.Info("finish conflict recovered", map[string]any{
		"orphans":   len(ids),
		"cancelled": cancelled,
	})
	return len(ids) == 0, errs
}
