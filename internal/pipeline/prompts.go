package pipeline

import (
	"fmt"
	"strings"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/queue"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/search"
)

// reliableSources is the guidance list handed to the curation and review
// agents. Topics sourced elsewhere are allowed but these outlets get priority.
var reliableSources = []string{
	"reuters.com",
	"apnews.com",
	"bbc.com",
	"aljazeera.com",
	"dawn.com",
	"thenews.com.pk",
	"geo.tv",
	"tribune.com.pk",
	"theguardian.com",
	"nytimes.com",
}

const curatorSystem = `You are a senior news editor curating trending topics for a digital newspaper.
You select newsworthy, verifiable stories and reject rumours, duplicates, and stale items.
Respond with JSON only.`

func curatorPrompt(task queue.Task, results []search.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", task.CategoryName)
	fmt.Fprintf(&b, "Select between %d and %d trending topics from the last %s.\n\n", task.MinTopics, task.MaxTopics, task.TimeWindow)

	b.WriteString("Search results:\n")
	for i, result := range results {
		fmt.Fprintf(&b, "%d. %s\n   link: %s\n   source: %s\n   date: %s\n", i+1, result.Title, result.Link, result.Source, result.Date)
		if result.Snippet != "" {
			fmt.Fprintf(&b, "   snippet: %s\n", result.Snippet)
		}
	}

	if len(task.ExcludeTitles) > 0 {
		b.WriteString("\nAlready covered, do not repeat:\n")
		for _, title := range task.ExcludeTitles {
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}

	if task.Prompt != "" {
		fmt.Fprintf(&b, "\nEditor instructions: %s\n", task.Prompt)
	}

	fmt.Fprintf(&b, "\nPrefer these outlets when choosing sources: %s.\n", strings.Join(reliableSources, ", "))
	b.WriteString(`
Return a JSON object with exactly this shape:
{"items":[{"title":"...","summary":"...","sources":["https://..."],"published":"YYYY-MM-DD"}]}
Each topic needs a concise headline, a two-sentence summary, at least one source URL, and the publication date.
If nothing newsworthy qualifies, return {"items":[]}.`)
	return b.String()
}

const researcherSystem = `You are a news researcher. You verify facts across sources and produce a
structured research brief a writer can draft from. Be factual and cite which source supports each claim.`

func researcherPrompt(topic queue.TopicRef, results []search.Result, pageTexts map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", topic.Title)
	if topic.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", topic.Summary)
	}

	if len(results) > 0 {
		b.WriteString("\nRelated coverage:\n")
		for i, result := range results {
			fmt.Fprintf(&b, "%d. %s (%s) %s\n", i+1, result.Title, result.Source, result.Link)
			if result.Snippet != "" {
				fmt.Fprintf(&b, "   %s\n", result.Snippet)
			}
		}
	}

	if len(pageTexts) > 0 {
		b.WriteString("\nSource page extracts:\n")
		for url, text := range pageTexts {
			fmt.Fprintf(&b, "--- %s ---\n%s\n", url, text)
		}
	}

	b.WriteString(`
Produce a research brief covering: confirmed facts with their sources, figures and dates,
conflicting reports if any, and relevant background. Plain text, no JSON.`)
	return b.String()
}

const writerSystem = `You are a staff writer for a digital newspaper. You write clear, neutral,
well-structured news articles in markdown from a research brief. Respond with JSON only.`

func writerPrompt(topic queue.TopicRef, brief string, operatorPrompt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nResearch brief:\n%s\n", topic.Title, brief)
	if operatorPrompt != "" {
		fmt.Fprintf(&b, "\nAdditional instructions: %s\n", operatorPrompt)
	}
	b.WriteString(`
Write the full article. Return a JSON object with exactly this shape:
{"title":"...","summary":"...","content":"markdown body...","tags":["..."],"sources":["https://..."]}
The content must be complete markdown with headings and at least 400 words. Only cite sources from the brief.`)
	return b.String()
}

const reviewerSystem = `You are the chief editor reviewing an article for factual accuracy against its
research brief before publication. You approve or reject, never rewrite. Respond with JSON only.`

func reviewerPrompt(draft string, brief string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research brief:\n%s\n\nDraft article JSON:\n%s\n", brief, draft)
	b.WriteString(`
Score the draft for accuracy against the brief. Return a JSON object with exactly this shape:
{"accuracy_score":0-100,"reason":"...","status":"APPROVED" or "REJECTED","feedback":"...","article":{"title":"...","summary":"...","content":"...","tags":["..."],"sources":["..."]}}
Copy the article fields from the draft unchanged. Approve only when every claim is supported by the brief.`)
	return b.String()
}

// retryNudge is appended when a structured stage returns unparseable JSON and
// iterations remain.
const retryNudge = "\n\nYour previous reply was not valid JSON matching the required shape. Reply again with only the JSON object."
