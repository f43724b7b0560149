package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/spf13/cobra"

	"github.com/frozenpine/ip4view"
	"github.com/frozenpine/ip4view/pcap"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <capture file>",
	Short: "Print every IPv4 header with its checksum status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		handle, err := pcap.CreateHandler("file://" + args[0])
		if err != nil {
			return err
		}
		defer handle.Close()

		return inspect(cmd.Context(), handle, cmd.OutOrStdout())
	},
}

func inspect(ctx context.Context, src pcap.PacketSource, out io.Writer) error {
	return pcap.StartCapture(ctx, src, func(ci gopacket.CaptureInfo, hdr ip4view.HeaderView) error {
		status := "ok"

		if intact, err := hdr.VerifyChecksum(); err != nil {
			status = err.Error()
		} else if !intact {
			status = fmt.Sprintf("bad crc %#04x", hdr.CRC())
		}

		_, err := fmt.Fprintf(out, "%s %s TTL=%d Len=%d ID=%#04x [%s]\n",
			ci.Timestamp.Format("15:04:05.000000"), hdr,
			hdr.TTL(), hdr.TotalLength(), hdr.Identification(), status,
		)

		return err
	})
}
