package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/soundweb-gateway/internal/client"
	cfgpkg "github.com/taoyao-code/soundweb-gateway/internal/config"
	"github.com/taoyao-code/soundweb-gateway/internal/protocol/soundweb"
)

type sendOptions struct {
	host    string
	port    int
	timeout time.Duration
	linger  time.Duration
	verbose bool
}

func sendCmd() *cobra.Command {
	opts := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Connect to a device, send one command and print what comes back",
	}
	cmd.PersistentFlags().StringVar(&opts.host, "host", "127.0.0.1", "device host")
	cmd.PersistentFlags().IntVar(&opts.port, "port", 1023, "device port")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "dial and write timeout")
	cmd.PersistentFlags().DurationVar(&opts.linger, "linger", 500*time.Millisecond, "how long to listen after sending")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log protocol traffic")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set-value GROUP ID VALUE",
			Short: "Send SET_VALUE",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				payload, err := setValuePayload(args)
				if err != nil {
					return err
				}
				return sendOnce(cmd, opts, payload)
			},
		},
		&cobra.Command{
			Use:   "raw HANDLE METHOD VALUE",
			Short: "Send RAW_MSG",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				payload, err := rawMsgPayload(args)
				if err != nil {
					return err
				}
				return sendOnce(cmd, opts, payload)
			},
		},
	)
	return cmd
}

func sendOnce(cmd *cobra.Command, opts *sendOptions, payload []byte) error {
	logger := zap.NewNop()
	if opts.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l
		defer func() { _ = l.Sync() }()
	}

	out := cmd.OutOrStdout()
	cfg := cfgpkg.DeviceConfig{
		Host:         opts.host,
		Port:         opts.port,
		DialTimeout:  opts.timeout,
		WriteTimeout: opts.timeout,
	}
	cli := client.New(cfg, logger, client.Hooks{
		OnSetValue: func(v soundweb.SetValue) {
			fmt.Fprintf(out, "<- SET_VALUE %s id=%d value=%d\n", v.Group, v.ID, v.Value)
		},
		OnRawMessage: func(d []byte) {
			fmt.Fprintf(out, "<- RAW_MSG %s\n", hexBytes(d))
		},
	}, nil)

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()
	if err := cli.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Send(ctx, payload); err != nil {
		return err
	}
	fmt.Fprintf(out, "-> %s\n", hexBytes(soundweb.Encode(payload)))

	select {
	case <-time.After(opts.linger):
	case <-cli.Done():
		return fmt.Errorf("%w: device closed the connection", client.ErrTransport)
	}
	return nil
}
