package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o-mini"

// LLMClient calls the configured provider for canonicalization,
// cluster description and shipped verdicting. All methods return an
// error the caller turns into the local deterministic fallback; a
// failed call never aborts a run.
type LLMClient struct {
	Provider        string // "anthropic" or "openai"
	Model           string
	DescribeModel   string
	AnthropicAPIKey string
	OpenAIAPIKey    string
}

func NewLLMClient(cfg Config) *LLMClient {
	if !cfg.LLMConfigured() {
		return nil
	}
	return &LLMClient{
		Provider:        cfg.LLMProvider,
		Model:           cfg.LLMModel,
		DescribeModel:   cfg.LLMDescribeModel,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
	}
}

func (l *LLMClient) complete(model, systemPrompt, userPrompt string) (string, error) {
	switch l.Provider {
	case "openai":
		if model == "" {
			model = defaultOpenAIModel
		}
		return callOpenAI(l.OpenAIAPIKey, model, systemPrompt, userPrompt)
	default:
		if model == "" {
			model = defaultAnthropicModel
		}
		return callAnthropic(l.AnthropicAPIKey, model, systemPrompt, userPrompt)
	}
}

// stripJSONFences removes markdown code fences that models wrap JSON
// responses in despite instructions.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// --- Canonicalization ---

type canonicalResponse struct {
	CanonicalRequirement string `json:"canonical_requirement"`
	Capability           string `json:"capability"`
}

// Canonicalize normalizes one ticket into a concise requirement label
// and capability. Blank fields in the response fall back to the local
// derivation; the vector text always stays local.
func (l *LLMClient) Canonicalize(t TicketRecord, stop map[string]bool) (string, string, error) {
	localCanonical, localCapability, _ := canonicalLocal(t, stop)

	payload := map[string]string{
		"title":        t.Title,
		"description":  t.Description,
		"product":      t.Product,
		"issue_type_1": t.IssueType1,
		"issue_type_2": t.IssueType2,
		"issue_type_3": t.IssueType3,
	}
	user, err := json.Marshal(payload)
	if err != nil {
		return localCanonical, localCapability, err
	}

	systemPrompt := `You normalize support/feature ticket text into a concise product requirement.
Respond with JSON only (no markdown):
{"canonical_requirement": "...", "capability": "..."}`

	text, err := l.complete(l.Model, systemPrompt, string(user))
	if err != nil {
		return localCanonical, localCapability, err
	}
	var parsed canonicalResponse
	if err := json.Unmarshal([]byte(stripJSONFences(text)), &parsed); err != nil {
		return localCanonical, localCapability, fmt.Errorf("parsing canonicalize response: %w", err)
	}
	canonical := cleanText(parsed.CanonicalRequirement)
	if canonical == "" {
		canonical = localCanonical
	}
	capability := cleanText(parsed.Capability)
	if capability == "" {
		capability = localCapability
	}
	return canonical, capability, nil
}

// --- Cluster description ---

type describeResponse struct {
	Description       string `json:"description"`
	PriorityLabel     string `json:"priority_label"`
	PriorityReasoning string `json:"priority_reasoning"`
}

var validPriorityLabels = map[string]bool{
	"Critical": true, "High": true, "Medium": true, "Low": true,
}

// DescribeCluster asks the model for a PM-readable description plus a
// refined priority label and reasoning. It may overwrite the local
// description and priority, never the rank score.
func (l *LLMClient) DescribeCluster(c Cluster, sample []TicketRecord) (string, string, string, error) {
	var titles []string
	for _, t := range sample {
		if len(titles) >= 12 {
			break
		}
		if v := cleanText(t.Title); v != "" {
			titles = append(titles, v)
		}
	}
	var descs []string
	for _, t := range sample {
		if len(descs) >= 5 {
			break
		}
		if v := cleanText(t.Description); v != "" {
			descs = append(descs, truncateText(v, 250))
		}
	}

	info := map[string]any{
		"cluster_label":           c.Label,
		"product":                 c.Product,
		"customer_count":          c.CustomerCount,
		"ticket_count_total":      c.TicketCount,
		"account_active_arr_total": c.ARRTotal,
		"open_count":              c.OpenCount,
		"open_ratio":              c.OpenRatio,
		"rank_score":              c.RankScore,
		"representative_examples": strings.Join(c.Excerpts, " | "),
		"sample_ticket_titles":    titles,
		"sample_ticket_descriptions": descs,
	}
	user, err := json.Marshal(info)
	if err != nil {
		return "", "", "", err
	}

	systemPrompt := `You are a senior product manager analyzing customer support tickets grouped into a requirement cluster.
Given the cluster metadata and a sample of ticket titles/descriptions, provide:
1. description: A clear 2-3 sentence summary of what customers are asking for and the core pain point.
2. priority_label: One of "Critical", "High", "Medium", or "Low" based on ARR impact, number of customers affected, and ticket volume.
3. priority_reasoning: 1-2 sentences explaining why this priority was assigned, citing specific numbers (ARR, customers, tickets).
Respond with JSON only (no markdown):
{"description": "...", "priority_label": "High", "priority_reasoning": "..."}`

	text, err := l.complete(l.DescribeModel, systemPrompt, string(user))
	if err != nil {
		return "", "", "", err
	}
	var parsed describeResponse
	if err := json.Unmarshal([]byte(stripJSONFences(text)), &parsed); err != nil {
		return "", "", "", fmt.Errorf("parsing describe response: %w", err)
	}
	label := parsed.PriorityLabel
	if !validPriorityLabels[label] {
		label = priorityLabelLocal(c.RankScore)
	}
	return cleanText(parsed.Description), label, cleanText(parsed.PriorityReasoning), nil
}

// --- Shipped verdict ---

type verdictResponse struct {
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

var validDecisions = map[string]bool{
	DecisionShipped: true, DecisionPossiblyShipped: true, DecisionNotShipped: true,
}

// ClassifyShipped implements VerdictClassifier. The model only sees
// the cluster label and the retrieved snippets, so its verdict is
// always evidence-grounded.
func (l *LLMClient) ClassifyShipped(label string, evidence []EvidenceItem) (string, float64, string, error) {
	type evidenceEntry struct {
		SectionTitle string  `json:"section_title"`
		SectionLink  string  `json:"section_link"`
		Score        float64 `json:"score"`
		Snippet      string  `json:"snippet"`
	}
	entries := make([]evidenceEntry, 0, len(evidence))
	for _, e := range evidence {
		entries = append(entries, evidenceEntry{
			SectionTitle: e.Chunk.SectionTitle,
			SectionLink:  e.Chunk.SectionLink,
			Score:        e.Score,
			Snippet:      e.Snippet,
		})
	}
	user, err := json.Marshal(map[string]any{"cluster_label": label, "evidence": entries})
	if err != nil {
		return "", 0, "", err
	}

	systemPrompt := `Classify if the requirement is already shipped based only on evidence snippets.
Respond with JSON only (no markdown):
{"decision": "SHIPPED|POSSIBLY_SHIPPED|NOT_SHIPPED", "confidence": 0.0, "reason": "..."}`

	text, err := l.complete(l.Model, systemPrompt, string(user))
	if err != nil {
		return "", 0, "", err
	}
	decision, confidence, reason, perr := parseVerdictResponse(text)
	if perr != nil {
		return "", 0, "", perr
	}
	return decision, confidence, reason, nil
}

func parseVerdictResponse(text string) (string, float64, string, error) {
	var parsed verdictResponse
	if err := json.Unmarshal([]byte(stripJSONFences(text)), &parsed); err != nil {
		return "", 0, "", fmt.Errorf("parsing verdict response: %w", err)
	}
	if !validDecisions[parsed.Decision] {
		return "", 0, "", fmt.Errorf("invalid verdict decision %q", parsed.Decision)
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	return parsed.Decision, parsed.Confidence, cleanText(parsed.Reason), nil
}

// --- Anthropic ---

func callAnthropic(apiKey, model, systemPrompt, userPrompt string) (string, error) {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	message, err := client.Messages.New(context.Background(), anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d",
				len(block.Text), message.Usage.InputTokens, message.Usage.OutputTokens)
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}

// --- OpenAI ---

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func callOpenAI(apiKey, model, systemPrompt, userPrompt string) (string, error) {
	reqBody := openAIRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		log.Printf("llm openai error: %v", err)
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return "", fmt.Errorf("parsing OpenAI response: %w", err)
	}
	if openAIResp.Error != nil {
		log.Printf("llm openai api error: %s", openAIResp.Error.Message)
		return "", fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}
	if len(openAIResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}
	return openAIResp.Choices[0].Message.Content, nil
}
