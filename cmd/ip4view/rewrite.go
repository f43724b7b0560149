package main

import (
	"context"

	"github.com/google/gopacket"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/frozenpine/ip4view"
	"github.com/frozenpine/ip4view/log"
	"github.com/frozenpine/ip4view/pcap"
	"github.com/frozenpine/ip4view/rewrite"
)

var (
	rulesFile  string
	outputFile string
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite <capture file>",
	Short: "Apply TTL and NAT rules to every IPv4 header and dump the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := rewrite.DefaultConfig()

		if rulesFile != "" {
			var err error

			if cfg, err = rewrite.LoadConfig(rulesFile); err != nil {
				return err
			}
		}

		rewriter, err := rewrite.New(cfg)
		if err != nil {
			return err
		}

		handle, err := pcap.CreateHandler("file://" + args[0])
		if err != nil {
			return err
		}
		defer handle.Close()

		writer, err := pcap.CreateWriter(outputFile, handle.LinkType(), 0)
		if err != nil {
			return err
		}
		defer writer.Close()

		if err := rewriteCapture(cmd.Context(), handle, rewriter, writer); err != nil {
			return err
		}

		stats := rewriter.Stats()
		log.GetLogger().WithFields(log.Fields{
			"processed": stats.Processed,
			"rewritten": stats.Rewritten,
			"expired":   stats.Expired,
			"corrupt":   stats.Corrupt,
			"malformed": stats.Malformed,
		}).Infof("rewrite of %s done", args[0])

		return nil
	},
}

// rewriteCapture writes every IPv4 frame surviving the rewriter, dropped
// frames are left out of the output.
func rewriteCapture(ctx context.Context, src pcap.PacketSource, rewriter *rewrite.Rewriter, w *pcap.Writer) error {
	return pcap.StartCapture(ctx, src, func(ci gopacket.CaptureInfo, hdr ip4view.HeaderView) error {
		if _, err := rewriter.Apply(hdr); err != nil {
			return err
		}

		if err := w.WritePacket(ci, hdr.RawData()); err != nil {
			return errors.Wrap(err, "write rewritten frame")
		}

		return nil
	})
}

func init() {
	rewriteCmd.Flags().StringVarP(&rulesFile, "rules", "r", "", "rewrite rules file (yaml, toml or json)")
	rewriteCmd.Flags().StringVarP(&outputFile, "output", "o", "rewritten.pcap", "output capture file")
}
