package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/ziadkadry99/themestudio/internal/editor"
	"github.com/ziadkadry99/themestudio/internal/protocol"
	"github.com/ziadkadry99/themestudio/internal/sandbox"
)

const selectTimeout = 10 * time.Second

// selectElement picks an element the way a user does in the browser: a
// sandbox loaded with the session's document is attached, selection is
// armed and the element clicked.
func selectElement(ctx context.Context, sess *editor.Session, elementID string) error {
	ctx, cancel := context.WithTimeout(ctx, selectTimeout)
	defer cancel()

	snap, err := sess.Snapshot(ctx)
	if err != nil {
		return err
	}
	updates, unsubscribe, err := sess.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer unsubscribe()

	host, sb := protocol.Pipe()
	defer host.Close()
	rt := sandbox.New(snap.Markup, sb)
	go rt.Run(ctx)
	go sess.AttachSandbox(ctx, host)

	if err := sess.EnableSelection(ctx); err != nil {
		return err
	}
	picked := false
	defer func() {
		if !picked {
			sess.CancelSelection(context.Background())
		}
	}()
	if err := rt.WaitSelectionMode(ctx, true); err != nil {
		return err
	}
	res, err := rt.Click(ctx, elementID)
	if err != nil {
		return err
	}
	if !res.Picked {
		return errors.New("sandbox did not report a pick")
	}

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return editor.ErrClosed
			}
			if u.Kind == editor.UpdateSelection && u.Selection != nil && u.Selection.ElementID == elementID {
				picked = true
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
