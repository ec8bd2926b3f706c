// Fraud pattern detection over a customer snapshot.
//
// Scan runs four independent signature detectors over a point-in-time copy of
// the customer population and emits threat clusters in a fixed order. It is
// pure: no store access, no mutation, and identical input always yields
// identical output, so admin surfaces can diff consecutive scans.
package fraud

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reguflow/aegis/recordstore"
)

type Severity string

const (
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// A set of customers sharing one detected fraud signature. Derived on every
// scan, never persisted.
type ThreatCluster struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Severity    Severity               `json:"severity"`
	Members     []recordstore.Customer `json:"members"`
}

// structuring: deposits sitting just under the $10k reporting threshold
const (
	structuringFloor   = 9800
	structuringCeiling = 10000
)

// marker embedded in LastLoginLocation when two distant logins were recorded
// within an implausible window
const travelMarker = "->"

const (
	syndicateMinMembers   = 4 // shared-IP group size that qualifies
	structuringMinMembers = 3
	botnetMinMembers      = 5 // exact-timestamp group size that qualifies
)

// Runs all detectors over the snapshot. Callers are expected to have excluded
// BANNED customers already. Cluster order is part of the contract: IP
// syndicates (first-seen IP order), structuring, impossible travel, then
// botnets (ascending timestamp).
func Scan(customers []recordstore.Customer) []ThreatCluster {
	var out []ThreatCluster
	out = append(out, detectSyndicates(customers)...)
	if c := detectStructuring(customers); c != nil {
		out = append(out, *c)
	}
	if c := detectImpossibleTravel(customers); c != nil {
		out = append(out, *c)
	}
	out = append(out, detectBotnets(customers)...)
	return out
}

// multimap that remembers first-seen key order
type customerGroups struct {
	order   []string
	members map[string][]recordstore.Customer
}

func groupBy(customers []recordstore.Customer, key func(recordstore.Customer) string) *customerGroups {
	g := &customerGroups{members: make(map[string][]recordstore.Customer)}
	for _, c := range customers {
		k := key(c)
		if _, seen := g.members[k]; !seen {
			g.order = append(g.order, k)
		}
		g.members[k] = append(g.members[k], c)
	}
	return g
}

// More than three accounts behind one IP address. One cluster per qualifying
// IP, in first-seen order.
func detectSyndicates(customers []recordstore.Customer) []ThreatCluster {
	groups := groupBy(customers, func(c recordstore.Customer) string { return c.IP })
	var out []ThreatCluster
	for _, ip := range groups.order {
		members := groups.members[ip]
		if len(members) < syndicateMinMembers {
			continue
		}
		out = append(out, ThreatCluster{
			Title:       "Syndicate Ring (Shared IP)",
			Description: fmt.Sprintf("IP: %s", ip),
			Severity:    SeverityHigh,
			Members:     members,
		})
	}
	return out
}

// Three or more deposits just under the reporting threshold. A single cluster
// covering every qualifying account, regardless of which IPs they hide
// behind.
func detectStructuring(customers []recordstore.Customer) *ThreatCluster {
	var smurfs []recordstore.Customer
	for _, c := range customers {
		if c.DepositAmount >= structuringFloor && c.DepositAmount < structuringCeiling {
			smurfs = append(smurfs, c)
		}
	}
	if len(smurfs) < structuringMinMembers {
		return nil
	}
	return &ThreatCluster{
		Title:       "Structuring / Smurfing Ring",
		Description: "Pattern: Multiple deposits just under $10k threshold.",
		Severity:    SeverityMedium,
		Members:     smurfs,
	}
}

// Login locations recording two distant places within an implausible window.
func detectImpossibleTravel(customers []recordstore.Customer) *ThreatCluster {
	var travelers []recordstore.Customer
	for _, c := range customers {
		if strings.Contains(c.LastLoginLocation, travelMarker) {
			travelers = append(travelers, c)
		}
	}
	if len(travelers) == 0 {
		return nil
	}
	return &ThreatCluster{
		Title:       "Impossible Travel Event",
		Description: "User logged in from two distant countries in < 5 mins.",
		Severity:    SeverityCritical,
		Members:     travelers,
	}
}

// More than four accounts logging in on the exact same timestamp string,
// down to the millisecond. One cluster per qualifying timestamp, ordered by
// ascending timestamp.
func detectBotnets(customers []recordstore.Customer) []ThreatCluster {
	groups := groupBy(customers, func(c recordstore.Customer) string { return c.LastLoginTime })
	var stamps []string
	for _, t := range groups.order {
		if len(groups.members[t]) >= botnetMinMembers {
			stamps = append(stamps, t)
		}
	}
	sort.Strings(stamps)
	var out []ThreatCluster
	for _, t := range stamps {
		out = append(out, ThreatCluster{
			Title:       "High-Frequency Botnet",
			Description: fmt.Sprintf("Timestamp Match: %s (Precision: 1ms)", t),
			Severity:    SeverityHigh,
			Members:     groups.members[t],
		})
	}
	return out
}
