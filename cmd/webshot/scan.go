package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"webshot/internal/core/capture"
	"webshot/internal/core/session"
	"webshot/internal/core/shoot"
	"webshot/internal/core/targets"
)

var scanFlags struct {
	nmapXML    []string
	nessusXML  []string
	urlFiles   []string
	renderd    string
	threads    int
	pageWaitMs int
	renderWait int
	mobile     bool
	retry      bool
	portsHTTP  string
	portsHTTPS string
	allOpen    bool
	dryrun     bool
	proxy      string
	headful    bool
}

var scanCmd = &cobra.Command{
	Use:   "scan [urls...]",
	Short: "Screenshot URLs",
	RunE:  runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringSliceVarP(&scanFlags.nmapXML, "nmap-xml", "x", nil, "nmap xml file")
	f.StringSliceVar(&scanFlags.nessusXML, "nessus-xml", nil, "nessus xml file")
	f.StringSliceVarP(&scanFlags.urlFiles, "url-file", "u", nil, "urls 1 per line, include scheme")
	f.StringVarP(&scanFlags.renderd, "renderd", "n", "", "path to the renderd binary")
	f.IntVarP(&scanFlags.threads, "threads", "w", 5, "number of concurrent screenshots to take")
	f.IntVarP(&scanFlags.pageWaitMs, "page-timeout", "t", 5000, "timeout in millisecs for page load event")
	f.IntVarP(&scanFlags.renderWait, "screen-wait", "l", 2000, "wait in millisecs between page load and screenshot")
	f.BoolVar(&scanFlags.mobile, "mobile", false, "emulate a mobile device")
	f.BoolVarP(&scanFlags.retry, "retry", "r", false, "retry failed urls")
	f.StringVar(&scanFlags.portsHTTP, "ports-http", "80,8080", "comma-separated http ports for xml targets")
	f.StringVar(&scanFlags.portsHTTPS, "ports-https", "443,8443", "comma-separated https ports for xml targets")
	f.BoolVar(&scanFlags.allOpen, "all-open", false, "scan all open ports")
	f.BoolVar(&scanFlags.dryrun, "dryrun", false, "list URLs that would be scanned")
	f.StringVar(&scanFlags.proxy, "proxy", "", `proxy for the headless browser, e.g. "socks5://127.0.0.1:1080"`)
	f.BoolVar(&scanFlags.headful, "show-browser", false, "display the browser")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	httpPorts, err := splitPorts(scanFlags.portsHTTP)
	if err != nil {
		return fmt.Errorf("bad --ports-http: %w", err)
	}
	httpsPorts, err := splitPorts(scanFlags.portsHTTPS)
	if err != nil {
		return fmt.Errorf("bad --ports-https: %w", err)
	}
	if scanFlags.allOpen {
		httpPorts, httpsPorts = allPorts(), allPorts()
	}

	urlSet := map[string]bool{}
	add := func(urls []string) {
		for _, u := range urls {
			urlSet[u] = true
		}
	}
	add(targets.ProcessURLs(args))
	for _, path := range scanFlags.urlFiles {
		urls, err := targets.FromFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		add(urls)
	}
	for _, path := range scanFlags.nmapXML {
		urls, err := targets.NmapFromXML(path, httpPorts, httpsPorts)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		add(urls)
	}
	for _, path := range scanFlags.nessusXML {
		urls, err := targets.NessusFromXML(path, httpPorts, httpsPorts)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		add(urls)
	}

	// The session dedupes URLs; failed ones are added back in if requested.
	sessionPath := viper.GetString("session")
	sess, err := session.New(sessionPath, setToSlice(urlSet))
	if err != nil {
		return err
	}
	defer sess.Close()

	urls, err := sess.QueuedURLs()
	if err != nil {
		return err
	}
	if scanFlags.retry {
		failed, err := sess.FailedURLs()
		if err != nil {
			return err
		}
		fmt.Printf("Retrying %d failed URL(s)\n", len(failed))
		queued := map[string]bool{}
		for _, u := range urls {
			queued[u] = true
		}
		for _, u := range failed {
			if !queued[u] {
				urls = append(urls, u)
			}
		}
	}

	fmt.Printf("Shooting %d URL(s)\n", len(urls))

	if scanFlags.dryrun {
		for _, u := range urls {
			fmt.Println("Shooting", u)
		}
		return nil
	}
	if len(urls) == 0 {
		return nil
	}

	binary, err := renderdPath(scanFlags.renderd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := capture.NewService(capture.ServiceConfig{
		BinaryPath:  binary,
		Proxy:       scanFlags.proxy,
		ShowBrowser: scanFlags.headful,
	})
	if err != nil {
		return err
	}
	client, err := svc.Start(ctx)
	if err != nil {
		return err
	}
	defer svc.Shutdown()
	client.Configure(scanFlags.mobile, scanFlags.renderWait, scanFlags.pageWaitMs)

	shoot.New(sess, client, filepath.Dir(sessionPath)).CaptureAll(ctx, urls, scanFlags.threads)
	return nil
}

func splitPorts(s string) (map[int]bool, error) {
	ports := map[int]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil || p < 1 || p > 65535 {
			return nil, fmt.Errorf("invalid port %q", part)
		}
		ports[p] = true
	}
	return ports, nil
}

func allPorts() map[int]bool {
	ports := make(map[int]bool, 65535)
	for p := 1; p <= 65535; p++ {
		ports[p] = true
	}
	return ports
}

func setToSlice(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// renderdPath resolves the render service binary: an explicit path wins,
// then a renderd next to the current executable, then $PATH.
func renderdPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), "renderd")
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}
	if path, err := exec.LookPath("renderd"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("renderd binary not found, pass --renderd")
}
