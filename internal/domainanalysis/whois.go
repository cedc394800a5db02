package domainanalysis

import (
	"context"
	"strings"
	"time"

	whois "github.com/likexian/whois"
	parser "github.com/likexian/whois-parser"
)

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

type whoisResult struct {
	days int
	ok   bool
}

// whoisAgeDays looks up a domain's registration date and returns its age
// in days, time-boxed by timeout the same as every other source in
// collect(). It degrades to (0, false) if the lookup doesn't finish
// within timeout or ctx is cancelled first, instead of blocking on a
// slow or unresponsive WHOIS server.
func whoisAgeDays(ctx context.Context, domain string, timeout time.Duration) (int, bool) {
	client := whois.NewClient()
	client.SetTimeout(timeout)

	resCh := make(chan whoisResult, 1)
	go func() {
		days, ok := lookupAge(client, domain, time.Now().Add(timeout))
		resCh <- whoisResult{days: days, ok: ok}
	}()

	select {
	case res := <-resCh:
		return res.days, res.ok
	case <-ctx.Done():
		return 0, false
	case <-time.After(timeout):
		return 0, false
	}
}

// lookupAge runs the actual WHOIS request plus the parent-domain
// fallback for subdomains with no direct record, the same fallback the
// reference vetting tooling uses. The fallback lookup shares deadline
// with the original call rather than getting a fresh budget.
func lookupAge(client *whois.Client, domain string, deadline time.Time) (int, bool) {
	raw, err := client.Whois(domain)
	if err != nil {
		return fallbackAge(client, domain, deadline)
	}

	parsed, err := parser.Parse(raw)
	if err != nil || parsed.Domain == nil || parsed.Domain.CreatedDate == "" {
		return fallbackAge(client, domain, deadline)
	}

	created, ok := parseWhoisDate(parsed.Domain.CreatedDate)
	if !ok {
		return 0, false
	}

	days := int(time.Since(created).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days, true
}

func fallbackAge(client *whois.Client, domain string, deadline time.Time) (int, bool) {
	parent, ok := parentDomain(domain)
	if !ok || !time.Now().Before(deadline) {
		return 0, false
	}
	return lookupAge(client, parent, deadline)
}

func parentDomain(domain string) (string, bool) {
	parts := strings.Split(domain, ".")
	if len(parts) <= 2 {
		return "", false
	}
	return strings.Join(parts[1:], "."), true
}

func parseWhoisDate(s string) (time.Time, bool) {
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
