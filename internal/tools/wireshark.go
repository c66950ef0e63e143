package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cybrty/redops/domain"
)

// Wireshark captures or replays network traffic through tshark, the
// Wireshark CLI. The target is either a capture interface or an existing
// pcap/pcapng file.
type Wireshark struct {
	base
}

// NewWireshark creates the wireshark adapter.
func NewWireshark() *Wireshark {
	return &Wireshark{base{name: "wireshark", binary: "tshark", timeout: 120 * time.Second}}
}

// Scan captures packets from an interface, or reads them back from a
// capture file when the target looks like one. Packet count and capture
// duration are clamped so a capture always terminates.
func (w *Wireshark) Scan(ctx context.Context, target string, params Params) *domain.ToolResult {
	args := w.buildArgs(target, params)
	return w.runScan(ctx, target, args, w.effectiveTimeout(params), parseWiresharkOutput)
}

func (w *Wireshark) buildArgs(target string, params Params) []string {
	count := clampInt(params.Int("packet_count", 50), 1, 1000)
	var args []string
	if isCaptureFile(target) {
		args = []string{"-r", target, "-c", fmt.Sprintf("%d", count)}
	} else {
		duration := clampInt(params.Int("duration", 60), 5, 300)
		args = []string{"-i", target, "-c", fmt.Sprintf("%d", count), "-a", fmt.Sprintf("duration:%d", duration)}
		if f := params.String("capture_filter", ""); f != "" {
			args = append(args, "-f", f)
		}
	}
	if f := params.String("display_filter", ""); f != "" {
		args = append(args, "-Y", f)
	}
	return args
}

// Simulate synthesizes a short capture with the live key set.
func (w *Wireshark) Simulate(target string, params Params) *domain.ToolResult {
	result := w.newResult(target, true)
	result.Success = true
	result.Command = fmt.Sprintf("tshark -i %s -c 50 (simulated - tshark not installed)", target)

	protocols := []string{}
	hosts := []string{}
	packetCount := 0
	if looksInternal(target) || isCaptureFile(target) {
		src, dst := "10.0.0.5", "10.0.0.1"
		lines := []string{
			fmt.Sprintf("    1   0.000000 %s -> %s TCP 74 52100 -> 443 [SYN] Seq=0", src, dst),
			fmt.Sprintf("    2   0.012480 %s -> %s TCP 74 443 -> 52100 [SYN, ACK] Seq=0 Ack=1", dst, src),
			fmt.Sprintf("    3   0.013502 %s -> %s HTTP 512 GET / HTTP/1.1", src, dst),
			fmt.Sprintf("    4   0.051263 %s -> %s DNS 89 Standard query A %s", src, dst, target),
		}
		result.Output = strings.Join(lines, "\n")
		protocols = []string{"TCP", "HTTP", "DNS"}
		hosts = []string{src, dst}
		packetCount = len(lines)
	} else {
		result.Output = fmt.Sprintf("Simulated capture on %s: no packets observed", target)
	}

	result.Metadata["packet_count"] = packetCount
	result.Metadata["protocols"] = protocols
	result.Metadata[domain.MetaKeyHosts] = hosts
	return result
}

// parseWiresharkOutput extracts packet count, observed protocols and
// endpoint hosts from tshark's one-line-per-packet output.
func parseWiresharkOutput(output string) (map[string]interface{}, error) {
	packetCount := 0
	protoSet := map[string]bool{}
	protocols := []string{}
	hostSet := map[string]bool{}
	hosts := []string{}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		packetCount++
		// tshark prints: 1 0.000000 10.0.0.5 -> 10.0.0.1 TCP 74 ...
		fields := strings.Fields(line)
		if len(fields) < 6 || (fields[3] != "->" && fields[3] != "→") {
			continue
		}
		for _, host := range []string{fields[2], fields[4]} {
			if !hostSet[host] {
				hostSet[host] = true
				hosts = append(hosts, host)
			}
		}
		proto := fields[5]
		if !protoSet[proto] {
			protoSet[proto] = true
			protocols = append(protocols, proto)
		}
	}

	return map[string]interface{}{
		"packet_count":      packetCount,
		"protocols":         protocols,
		domain.MetaKeyHosts: hosts,
	}, nil
}

func isCaptureFile(target string) bool {
	return strings.HasSuffix(target, ".pcap") || strings.HasSuffix(target, ".pcapng")
}
