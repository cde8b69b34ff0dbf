package main

import (
	"fmt"
	"sort"
	"strings"
)

// canonicalLocal derives a canonical requirement label, capability and
// vector text from a ticket's structured fields and top description
// keywords. It is the deterministic counterpart of llmCanonicalize and
// its fallback.
func canonicalLocal(t TicketRecord, stop map[string]bool) (canonical, capability, vectorText string) {
	title := cleanText(t.Title)
	desc := cleanText(t.Description)

	basis := truncateText(desc, 500) + " " + title
	counts, order := countTokens(tokenize(basis, stop))
	kws := topCounts(counts, order, 6)

	var labelParts []string
	for _, part := range []string{cleanText(t.Product), cleanText(t.IssueType1), cleanText(t.IssueType2)} {
		if part != "" {
			labelParts = append(labelParts, part)
		}
	}
	label := "General Requirement"
	if len(labelParts) > 0 {
		label = strings.Join(labelParts, " | ")
	}
	if len(kws) > 0 {
		top := kws
		if len(top) > 3 {
			top = top[:3]
		}
		label = label + " - " + strings.Join(top, " ")
	}

	capability = cleanText(t.IssueType1)
	if capability == "" {
		capability = cleanText(t.Product)
	}
	if capability == "" {
		capability = "Unknown"
	}

	vectorText = truncateText(desc, 600)
	if vectorText == "" {
		vectorText = title
	}
	return label, capability, vectorText
}

func topFieldValue(members []TicketRecord, get func(TicketRecord) string) string {
	counts := make(map[string]int)
	var order []string
	for _, t := range members {
		v := cleanText(get(t))
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	top := topCounts(counts, order, 1)
	if len(top) == 0 {
		return ""
	}
	return top[0]
}

func isOpenStatus(status string) bool {
	switch strings.ToLower(cleanText(status)) {
	case "open", "pending":
		return true
	}
	return false
}

// clusterAggregateText joins member descriptions (title when the
// description is blank), each capped at 400 chars. Feeds both the
// keyword themes and the centroid used to pick representative content.
func clusterAggregateText(members []TicketRecord) string {
	parts := make([]string, 0, len(members))
	for _, t := range members {
		d := cleanText(t.Description)
		if d == "" {
			d = cleanText(t.Title)
		}
		parts = append(parts, truncateText(d, 400))
	}
	return strings.Join(parts, " ")
}

// mostRepresentative picks the member text closest to the cluster
// centroid by cosine over term-count vectors. First member wins ties.
func mostRepresentative(members []TicketRecord, centroid sparseVec, get func(TicketRecord) string, stop map[string]bool) string {
	best, bestScore := "", -1.0
	for _, t := range members {
		text := cleanText(get(t))
		if text == "" {
			continue
		}
		if s := cosineSparse(termVector(text, stop), centroid); s > bestScore {
			bestScore, best = s, text
		}
	}
	return best
}

// clusterLabel composes the roadmap name for a cluster:
// [Product] IssueType1 > IssueType2 — representative title (<=70 chars).
func clusterLabel(members []TicketRecord, stop map[string]bool) string {
	product := ""
	if len(members) > 0 {
		product = cleanText(members[0].Product)
	}
	i1 := topFieldValue(members, func(t TicketRecord) string { return t.IssueType1 })
	i2 := topFieldValue(members, func(t TicketRecord) string { return t.IssueType2 })

	var issueParts []string
	for _, p := range []string{i1, i2} {
		if p != "" {
			issueParts = append(issueParts, p)
		}
	}
	issueStr := strings.Join(issueParts, " > ")

	centroid := termVector(clusterAggregateText(members), stop)
	repTitle := mostRepresentative(members, centroid, func(t TicketRecord) string { return t.Title }, stop)
	if len(repTitle) > 70 {
		repTitle = strings.TrimRight(truncateText(repTitle, 67), " ") + "..."
	}

	var base string
	switch {
	case product != "" && issueStr != "":
		base = fmt.Sprintf("[%s] %s", product, issueStr)
	case product != "":
		base = fmt.Sprintf("[%s]", product)
	case issueStr != "":
		base = issueStr
	default:
		base = "General Requirement"
	}
	if repTitle != "" {
		return base + " — " + repTitle
	}
	return base
}

// localDescription assembles a PM-readable impact summary without any
// LLM: requirement area, customer/ticket impact, ARR and open counts,
// keyword themes, and the most representative complaint verbatim.
func localDescription(members []TicketRecord, stop map[string]bool) string {
	n := len(members)

	custCounts := make(map[string]int)
	var custOrder []string
	for _, t := range members {
		name := cleanText(t.Customer)
		if name == "" {
			continue
		}
		if custCounts[name] == 0 {
			custOrder = append(custOrder, name)
		}
		custCounts[name]++
	}
	nCust := len(custCounts)
	topCust := topCounts(custCounts, custOrder, 5)
	custList := strings.Join(topCust, ", ")
	if nCust > 5 {
		custList += fmt.Sprintf(" (+%d more)", nCust-5)
	}

	var arrTotal float64
	openCount := 0
	for _, t := range members {
		arrTotal += t.ARR
		if isOpenStatus(t.Status) {
			openCount++
		}
	}
	arrStr := "ARR not available"
	if arrTotal > 0 {
		arrStr = fmt.Sprintf("₹%s", formatAmount(arrTotal))
	}

	i1 := topFieldValue(members, func(t TicketRecord) string { return t.IssueType1 })
	i2 := topFieldValue(members, func(t TicketRecord) string { return t.IssueType2 })
	i3 := topFieldValue(members, func(t TicketRecord) string { return t.IssueType3 })
	var catParts []string
	for _, p := range []string{i1, i2, i3} {
		if p != "" {
			catParts = append(catParts, p)
		}
	}
	category := strings.Join(catParts, " › ")
	if category == "" {
		category = "General Request"
	}
	product := ""
	if n > 0 {
		product = cleanText(members[0].Product)
	}

	allText := clusterAggregateText(members)
	counts, order := countTokens(tokenize(allText, stop))
	kws := topCounts(counts, order, 12)
	if len(kws) > 8 {
		kws = kws[:8]
	}

	centroid := termVector(allText, stop)
	bestDesc := mostRepresentative(members, centroid, func(t TicketRecord) string {
		if d := cleanText(t.Description); d != "" {
			return d
		}
		return t.Title
	}, stop)

	tWord := "tickets"
	if n == 1 {
		tWord = "ticket"
	}
	cWord := "customers"
	if nCust == 1 {
		cWord = "customer"
	}

	areaLine := fmt.Sprintf("Requirement area: %s.", category)
	if product != "" {
		areaLine = fmt.Sprintf("Requirement area: [%s] %s.", product, category)
	}
	lines := []string{
		areaLine,
		fmt.Sprintf("Impact: %d %s from %d %s (%s).", n, tWord, nCust, cWord, custList),
		fmt.Sprintf("ARR at risk: %s. Open tickets: %d/%d.", arrStr, openCount, n),
		fmt.Sprintf("Key themes from customer descriptions: %s.", strings.Join(kws, ", ")),
	}
	if bestDesc != "" {
		excerpt := strings.TrimRight(truncateText(bestDesc, 300), " ")
		if len(bestDesc) > 300 {
			excerpt += "..."
		}
		lines = append(lines, fmt.Sprintf("Most representative complaint: %q", excerpt))
	}
	return strings.Join(lines, " ")
}

func formatAmount(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

func priorityLabelLocal(rankScore float64) string {
	switch {
	case rankScore >= 0.65:
		return "Critical"
	case rankScore >= 0.35:
		return "High"
	case rankScore >= 0.15:
		return "Medium"
	default:
		return "Low"
	}
}

// summarizeClusters turns raw member-index groups into ranked Cluster
// rows. Statistics are normalised by corpus-wide maxima, then
// score = 0.35*customers + 0.25*tickets + 0.25*ARR + 0.15*openRatio.
// Ranking reorders only; membership is fixed before this runs.
func summarizeClusters(tickets []TicketRecord, groups [][]int, stop map[string]bool) []Cluster {
	clusters := make([]Cluster, 0, len(groups))

	maxCustomers, maxTickets, maxARR := 1, 1, 1.0
	for cid, idxs := range groups {
		members := make([]TicketRecord, 0, len(idxs))
		for _, i := range idxs {
			members = append(members, tickets[i])
		}

		custCounts := make(map[string]int)
		var custOrder []string
		jiraCount, openCount := 0, 0
		var arrTotal float64
		for _, t := range members {
			if name := cleanText(t.Customer); name != "" {
				if custCounts[name] == 0 {
					custOrder = append(custOrder, name)
				}
				custCounts[name]++
			}
			if cleanText(t.JiraIssueID) != "" {
				jiraCount++
			}
			if isOpenStatus(t.Status) {
				openCount++
			}
			arrTotal += t.ARR
		}

		openRatio := 0.0
		if len(members) > 0 {
			openRatio = float64(openCount) / float64(len(members))
		}

		if len(custCounts) > maxCustomers {
			maxCustomers = len(custCounts)
		}
		if len(members) > maxTickets {
			maxTickets = len(members)
		}
		if arrTotal > maxARR {
			maxARR = arrTotal
		}

		var excerpts []string
		for _, t := range members {
			if len(excerpts) >= 5 {
				break
			}
			d := cleanText(t.Description)
			if d == "" {
				d = cleanText(t.Title)
			}
			if d == "" {
				continue
			}
			ex := strings.TrimRight(truncateText(d, 180), " ")
			if len(d) > 180 {
				ex += "..."
			}
			excerpts = append(excerpts, ex)
		}

		var requestIDs []string
		for _, t := range members {
			if len(requestIDs) >= 15 {
				break
			}
			if id := cleanText(t.RequestID); id != "" {
				requestIDs = append(requestIDs, id)
			}
		}

		customerNames := topCounts(custCounts, custOrder, 20)

		product := "Unknown"
		if len(members) > 0 && cleanText(members[0].Product) != "" {
			product = cleanText(members[0].Product)
		}

		clusters = append(clusters, Cluster{
			ID:            fmt.Sprintf("SEM-%04d", cid+1),
			Label:         clusterLabel(members, stop),
			Product:       product,
			CustomerCount: len(custCounts),
			TicketCount:   len(members),
			JiraCount:     jiraCount,
			ARRTotal:      arrTotal,
			OpenCount:     openCount,
			OpenRatio:     openRatio,
			Description:   localDescription(members, stop),
			Excerpts:      excerpts,
			RequestIDs:    requestIDs,
			CustomerNames: customerNames,
			MemberIndexes: append([]int(nil), idxs...),
		})
	}

	for i := range clusters {
		c := &clusters[i]
		nc := float64(c.CustomerCount) / float64(maxCustomers)
		nt := float64(c.TicketCount) / float64(maxTickets)
		na := 0.0
		if maxARR > 0 {
			na = c.ARRTotal / maxARR
		}
		c.RankScore = 0.35*nc + 0.25*nt + 0.25*na + 0.15*c.OpenRatio
		c.PriorityLabel = priorityLabelLocal(c.RankScore)
	}

	sort.SliceStable(clusters, func(a, b int) bool {
		return clusters[a].RankScore > clusters[b].RankScore
	})
	for i := range clusters {
		clusters[i].Rank = i + 1
	}
	return clusters
}

// buildAssignments maps every member ticket with a request id to its
// cluster. Blank request ids produce no row.
func buildAssignments(tickets []TicketRecord, clusters []Cluster) []Assignment {
	var out []Assignment
	for _, c := range clusters {
		for _, idx := range c.MemberIndexes {
			rid := cleanText(tickets[idx].RequestID)
			if rid == "" {
				continue
			}
			out = append(out, Assignment{RequestID: rid, ClusterID: c.ID, ClusterLabel: c.Label})
		}
	}
	return out
}
