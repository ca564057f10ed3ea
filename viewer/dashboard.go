package viewer

import (
	"context"
	"time"

	"github.com/mum4k/termdash"
	"github.com/mum4k/termdash/container"
	"github.com/mum4k/termdash/linestyle"
	"github.com/mum4k/termdash/terminal/termbox"
	"github.com/mum4k/termdash/terminal/terminalapi"
	"github.com/mum4k/termdash/widgets/text"

	"github.com/han-so1omon/treetools/server"
)

const redrawInterval = 250 * time.Millisecond

// Dashboard draws each snapshot's rendered text in a terminal window
type Dashboard struct {
	header *text.Text
	body   *text.Text
}

func NewDashboard() (*Dashboard, error) {
	header, err := text.New()
	if err != nil {
		return nil, err
	}
	body, err := text.New(text.WrapAtRunes())
	if err != nil {
		return nil, err
	}
	return &Dashboard{header: header, body: body}, nil
}

func (d *Dashboard) Show(s *server.Snapshot) error {
	if err := d.header.Write(Title(s), text.WriteReplace()); err != nil {
		return err
	}
	body := s.Text
	if body == "" {
		body = "(empty tree)"
	}
	return d.body.Write(body, text.WriteReplace())
}

// Run takes over the terminal and follows cfg.URL until q is pressed, ctx is
// done, or the stream ends.
func Run(ctx context.Context, cfg Config) error {
	d, err := NewDashboard()
	if err != nil {
		return err
	}

	t, err := termbox.New()
	if err != nil {
		return err
	}
	defer t.Close()

	c, err := container.New(
		t,
		container.Border(linestyle.Light),
		container.BorderTitle("treetools"),
		container.SplitHorizontal(
			container.Top(container.PlaceWidget(d.header)),
			container.Bottom(container.PlaceWidget(d.body)),
			container.SplitPercent(10),
		),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- Watch(ctx, cfg, d)
		cancel()
	}()

	quitter := func(k *terminalapi.Keyboard) {
		if k.Key == 'q' || k.Key == 'Q' {
			cancel()
		}
	}
	if err := termdash.Run(ctx, t, c, termdash.KeyboardSubscriber(quitter), termdash.RedrawInterval(redrawInterval)); err != nil {
		return err
	}
	return <-watchErr
}
