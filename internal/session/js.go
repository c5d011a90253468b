package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Script bodies shared by the browser drivers. Each returns a JSON-friendly
// value: a number, a string or null, or a boolean.

func CountBody(p Path) string {
	return p.Script() + "return els.length;"
}

func AttributeBody(p Path, name string) string {
	n, _ := json.Marshal(name)
	return p.Script() + fmt.Sprintf("if (els.length === 0) return null;\nreturn els[0].getAttribute(%s);", n)
}

// ClickBody dispatches a click event; kudos controls are SVG elements, which
// have no click method.
func ClickBody(p Path) string {
	return p.Script() + `if (els.length === 0) return false;
els[0].scrollIntoView({block: "center"});
els[0].dispatchEvent(new MouseEvent("click", {bubbles: true, cancelable: true, view: window}));
return true;`
}

// Expression wraps a body as an immediately invoked expression.
func Expression(body string) string {
	return "(() => {\n" + body + "\n})()"
}

// Function wraps a body as an arrow function.
func Function(body string) string {
	return "() => {\n" + body + "\n}"
}

const clickPoll = 100 * time.Millisecond

// ClickWithin calls try until it reports a click, the timeout elapses or ctx
// is done. A zero timeout calls try once.
func ClickWithin(ctx context.Context, timeout time.Duration, try func(ctx context.Context) (bool, error)) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(clickPoll)
	defer ticker.Stop()

	for {
		clicked, err := try(ctx)
		if err != nil && ctx.Err() == nil {
			return err
		}
		if clicked {
			return nil
		}
		if timeout <= 0 {
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return ErrTimeout
		case <-ticker.C:
		}
	}
}
