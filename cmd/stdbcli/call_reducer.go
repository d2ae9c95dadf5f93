package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/spacetimedb/sdk-go/client"
	"github.com/spacetimedb/sdk-go/protocol"
)

// callReducerObserver waits for the connection to come up, then signals once
// the in-flight reducer call's result arrives. requestID is set after
// CallReducer returns, so OnReducerResult ignores outcomes for any other
// in-flight request until it is.
type callReducerObserver struct {
	printObserver

	mu        sync.Mutex
	requestID *uint32

	connected chan struct{}
	done      chan struct{}
}

func (o *callReducerObserver) OnConnect() {
	o.printObserver.OnConnect()
	close(o.connected)
}

func (o *callReducerObserver) setRequestID(id uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requestID = &id
}

func (o *callReducerObserver) OnReducerResult(requestID uint32, outcome protocol.ReducerOutcome) {
	o.printObserver.OnReducerResult(requestID, outcome)

	o.mu.Lock()
	match := o.requestID != nil && *o.requestID == requestID
	o.mu.Unlock()
	if match {
		close(o.done)
	}
}

func newCallReducerCmd(configPath *string) *cobra.Command {
	var flags connFlags
	var argsJSON string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "call-reducer <name>",
		Short: "Connect, invoke a single reducer, and print its outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(*configPath, flags)
			if err != nil {
				return err
			}

			reducerArgs := map[string]any{}
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &reducerArgs); err != nil {
					return fmt.Errorf("parsing --args: %w", err)
				}
			}

			obs := &callReducerObserver{connected: make(chan struct{}), done: make(chan struct{})}
			c := client.New(*cfg, obs)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			go func() { _ = c.Start(ctx) }()

			select {
			case <-obs.connected:
			case <-ctx.Done():
				return fmt.Errorf("timed out waiting to connect")
			}

			reqID, err := c.CallReducer(ctx, args[0], reducerArgs)
			if err != nil {
				return err
			}
			obs.setRequestID(reqID)

			select {
			case <-obs.done:
			case <-ctx.Done():
				return fmt.Errorf("timed out waiting for reducer result")
			}
			return c.Close()
		},
	}
	addConnFlags(cmd, &flags)
	cmd.Flags().StringVar(&argsJSON, "args", "{}", "reducer arguments as a JSON object")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall deadline for connect + call + result")
	return cmd
}
