package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taoyao-code/soundweb-gateway/internal/protocol/soundweb"
)

func encodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Print the wire frame of a command",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set-value GROUP ID VALUE",
			Short: "Encode a SET_VALUE frame",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				payload, err := setValuePayload(args)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hexBytes(soundweb.Encode(payload)))
				return nil
			},
		},
		&cobra.Command{
			Use:   "raw HANDLE METHOD VALUE",
			Short: "Encode a RAW_MSG frame",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				payload, err := rawMsgPayload(args)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hexBytes(soundweb.Encode(payload)))
				return nil
			},
		},
	)
	return cmd
}

func decodeCmd() *cobra.Command {
	var keepFirst bool
	cmd := &cobra.Command{
		Use:   "decode HEX...",
		Short: "Run bytes through the frame decoder and print its events",
		Long: `Bytes may be given as separate arguments or one run ("02 84 00" or "028400").
The decoder drops the first frame after reset; --keep-first primes it so every frame is shown.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseHex(args)
			if err != nil {
				return err
			}
			dec := soundweb.NewDecoder()
			if keepFirst {
				dec.Push(soundweb.Encode([]byte{byte(soundweb.RawMsgCmd)}))
			}
			printEvents(cmd.OutOrStdout(), dec.Push(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepFirst, "keep-first", false, "do not discard the first frame")
	return cmd
}

func printEvents(w io.Writer, events []soundweb.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "no events")
		return
	}
	for _, ev := range events {
		switch ev.Kind {
		case soundweb.EventMessage:
			fmt.Fprintf(w, "message %s", hexBytes(ev.Payload))
			if cmd, err := soundweb.DecodeCommand(ev.Payload); err != nil {
				fmt.Fprintf(w, " (%v)\n", err)
			} else {
				fmt.Fprintf(w, " %s\n", describe(cmd))
			}
		case soundweb.EventChecksumInvalid:
			fmt.Fprintf(w, "checksum_invalid received=0x%02X residual=0x%02X\n", ev.Received, ev.Residual)
		default:
			fmt.Fprintln(w, ev.Kind.String())
		}
	}
}

func describe(cmd soundweb.Command) string {
	switch v := cmd.(type) {
	case soundweb.SetValue:
		return fmt.Sprintf("SET_VALUE %s id=%d value=%d", v.Group, v.ID, v.Value)
	case soundweb.RawMsg:
		if h, m, val, ok := v.Fields(); ok {
			return fmt.Sprintf("RAW_MSG handle=0x%08X method=%d value=%d", h, m, val)
		}
		return "RAW_MSG " + hexBytes(v.Data)
	}
	return cmd.Code().String()
}

func setValuePayload(args []string) ([]byte, error) {
	id, err := strconv.ParseUint(args[1], 0, 8)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	value, err := strconv.ParseUint(args[2], 0, 16)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	return soundweb.EncodeSetValue(args[0], byte(id), uint16(value))
}

func rawMsgPayload(args []string) ([]byte, error) {
	handle, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return nil, fmt.Errorf("handle: %w", err)
	}
	method, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return nil, fmt.Errorf("method: %w", err)
	}
	value, err := strconv.ParseInt(args[2], 0, 16)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	return soundweb.EncodeRawMsg(uint32(handle), uint32(method), int16(value)), nil
}

func parseHex(args []string) ([]byte, error) {
	s := strings.Join(args, "")
	s = strings.NewReplacer(" ", "", "0x", "", "0X", "", ",", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parse hex: %w", err)
	}
	return b, nil
}

func hexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("%02X", c)
	}
	return strings.Join(parts, " ")
}
