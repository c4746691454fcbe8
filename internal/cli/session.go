package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"aaronromeo.com/mailsift/internal/worker"
	"github.com/urfave/cli/v2"
)

// runWorker opens a worker session, lets submit queue tasks and runs
// dispatched callbacks on this goroutine until finish is called.
// Interrupts cancel the running search instead of killing the process.
func (a *App) runWorker(c *cli.Context, env *environment, opts []worker.Option, submit func(w *worker.Worker, finish func(error))) error {
	d := worker.NewLoopDispatcher()

	finished := false
	var result error
	finish := func(err error) {
		finished = true
		result = err
	}

	opts = append([]worker.Option{
		worker.WithConnector(env.connector),
		worker.WithDispatcher(d),
		worker.WithLogger(env.logger),
		worker.WithEngineOptions(env.engineOptions()...),
		worker.WithOnFailed(finish),
		worker.WithOnProgress(func(_ int, message string) {
			fmt.Fprintln(a.stderr, message)
		}),
	}, opts...)
	w, err := worker.New(opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	defer func() {
		w.Close()
		<-w.Done()
	}()

	stop := a.watchInterrupts(w)
	defer stop()

	submit(w, finish)
	for !finished {
		if !d.Next(ctx) {
			return ctx.Err()
		}
	}
	return result
}

func (a *App) watchInterrupts(w *worker.Worker) func() {
	signals := a.signals
	release := func() {}
	if signals == nil {
		signals = make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		release = func() { signal.Stop(signals) }
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-signals:
				w.Cancel()
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		release()
	}
}
