// Package probe performs reachability checks against the resolvers referenced by the configuration, so a broken
// resolver can be spotted before its address is baked into the generated file.
package probe

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"github.com/davidsbond/x/set"
)

type (
	// The Result type describes the outcome of probing a single resolver.
	Result struct {
		// The resolver address as it appears in the configuration.
		Resolver string
		// The round-trip time of the probe query. Zero when the probe failed.
		RTT time.Duration
		// The probe failure, nil on success.
		Err error
	}
)

const (
	// The domain used for probe queries. Any well-known name works here, the response content is ignored.
	probeQuestion = "example.com."

	probeTimeout = 10 * time.Second
)

// Target converts a resolver address from the configuration into the network and address to probe it at.
// Addresses prefixed "tls://" are queried using DNS-over-TLS on port 853, anything else using plain UDP on
// port 53. An explicit port is kept as-is.
func Target(resolver string) (network, address string) {
	if host, ok := strings.CutPrefix(resolver, "tls://"); ok {
		return "tcp-tls", withDefaultPort(host, "853")
	}

	return "udp", withDefaultPort(resolver, "53")
}

func withDefaultPort(address, port string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}

	return net.JoinHostPort(address, port)
}

// Run probes each of the provided resolvers concurrently with a single A query, returning one Result per unique
// resolver. Probe failures are reported in the results rather than aborting the remaining probes.
func Run(ctx context.Context, resolvers []string, logger *slog.Logger) []Result {
	seen := set.New[string]()

	var targets []string
	for _, resolver := range resolvers {
		if seen.Contains(resolver) {
			continue
		}

		seen.Put(resolver)
		targets = append(targets, resolver)
	}

	results := make([]Result, len(targets))

	group, ctx := errgroup.WithContext(ctx)
	for i, resolver := range targets {
		group.Go(func() error {
			log := logger.With("resolver", resolver)
			log.Info("probing resolver")

			rtt, err := query(ctx, resolver)
			if err != nil {
				log.With("error", err).Error("resolver unreachable")
			} else {
				log.With("rtt", rtt).Info("resolver healthy")
			}

			results[i] = Result{
				Resolver: resolver,
				RTT:      rtt,
				Err:      err,
			}

			return nil
		})
	}

	// The goroutines only ever return nil; failures live in the results.
	_ = group.Wait()

	return results
}

func query(ctx context.Context, resolver string) (time.Duration, error) {
	network, address := Target(resolver)

	client := &dns.Client{Net: network, Timeout: probeTimeout}

	msg := new(dns.Msg)
	msg.SetQuestion(probeQuestion, dns.TypeA)

	_, rtt, err := client.ExchangeContext(ctx, msg, address)
	if err != nil {
		return 0, err
	}

	return rtt, nil
}
