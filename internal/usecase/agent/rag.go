package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ducdang03/money-ez-ai/internal/domain"
)

// knowledgeKeywords mark questions that benefit from document retrieval.
var knowledgeKeywords = []string{
	"tài chính", "thông tin", "giải thích", "là gì", "định nghĩa",
	"khái niệm", "cách", "làm sao", "tư vấn", "nên", "hướng dẫn",
	"quy định", "luật", "chính sách", "so sánh", "khác nhau",
}

// fillerWords are stripped from user questions before retrieval.
var fillerWords = []string{
	"cho tôi", "giúp tôi", "làm ơn", "xin vui lòng", "bạn có thể",
	"tôi muốn", "tôi cần", "xin", "hãy", "thông tin về",
}

// financialTerms present in a question form an extra keyword query.
var financialTerms = []string{
	"đầu tư", "tiết kiệm", "chi tiêu", "thu nhập", "lãi suất",
	"chứng khoán", "cổ phiếu", "trái phiếu", "ngân sách", "vay", "nợ",
	"thuế", "bảo hiểm", "quỹ", "tài chính cá nhân",
}

// shouldUseRAG reports whether the latest turn warrants knowledge
// retrieval. Only a trailing user message is eligible.
func shouldUseRAG(messages []domain.Message) bool {
	if len(messages) == 0 {
		return false
	}
	last := messages[len(messages)-1]
	if last.Role != domain.RoleUser {
		return false
	}

	lower := strings.ToLower(last.Content)
	for _, kw := range knowledgeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// buildQueries turns the user question into search queries: the
// question with filler phrases removed (reverted when stripping eats
// more than half of it), plus a keyword query of any financial terms
// the question contains.
func buildQueries(question string) []string {
	optimized := question
	for _, w := range fillerWords {
		optimized = strings.TrimSpace(strings.ReplaceAll(optimized, w, ""))
	}
	if 2*utf8.RuneCountInString(optimized) < utf8.RuneCountInString(question) {
		optimized = question
	}
	queries := []string{optimized}

	lower := strings.ToLower(question)
	var found []string
	for _, term := range financialTerms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	if len(found) > 0 {
		queries = append(queries, strings.Join(found, " "))
	}
	return queries
}

// retrieve collects chunks for every query, dedupes them by content and
// orders them by term overlap with the first query. Any retrieval error
// degrades to an empty context, a turn must not fail because the
// knowledge base is unavailable.
func (s *Service) retrieve(ctx context.Context, queries []string) []domain.ScoredChunk {
	var docs []domain.ScoredChunk
	seen := make(map[string]struct{})

	for _, q := range queries {
		found, err := s.retriever.Query(ctx, q)
		if err != nil {
			s.logger.Warn("Knowledge retrieval failed",
				zap.String("query", q), zap.Error(err))
			return nil
		}
		for _, d := range found {
			if _, ok := seen[d.Chunk.Content]; ok {
				continue
			}
			seen[d.Chunk.Content] = struct{}{}
			docs = append(docs, d)
		}
	}

	if len(docs) > 1 {
		rankByOverlap(docs, queries[0])
	}
	return docs
}

// rankByOverlap orders docs by the number of terms they share with the
// query, best first. Ties keep their retrieval order.
func rankByOverlap(docs []domain.ScoredChunk, query string) {
	queryTerms := termSet(query)
	sort.SliceStable(docs, func(i, j int) bool {
		return countOverlap(queryTerms, docs[i].Chunk.Content) >
			countOverlap(queryTerms, docs[j].Chunk.Content)
	})
}

func termSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range strings.Fields(strings.ToLower(s)) {
		set[t] = struct{}{}
	}
	return set
}

func countOverlap(terms map[string]struct{}, content string) int {
	n := 0
	for t := range termSet(content) {
		if _, ok := terms[t]; ok {
			n++
		}
	}
	return n
}

// formatDocs renders chunks as an XML-ish block for the system prompt.
func formatDocs(docs []domain.ScoredChunk) string {
	if len(docs) == 0 {
		return "<documents></documents>"
	}

	var b strings.Builder
	b.WriteString("<documents>\n")
	for _, d := range docs {
		b.WriteString("<document")
		if d.Chunk.DocumentID != "" {
			fmt.Fprintf(&b, " document_id='%s'", d.Chunk.DocumentID)
		}
		if d.Chunk.DocumentName != "" {
			fmt.Fprintf(&b, " document_name='%s'", d.Chunk.DocumentName)
		}
		keys := make([]string, 0, len(d.Chunk.Metadata))
		for k := range d.Chunk.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s='%s'", k, d.Chunk.Metadata[k])
		}
		b.WriteString(">\n")
		b.WriteString(d.Chunk.Content)
		b.WriteString("\n</document>")
	}
	b.WriteString("\n</documents>")
	return b.String()
}

// enhanceSystem appends the retrieved context to the system prompt.
func enhanceSystem(system string, docs []domain.ScoredChunk) string {
	if len(docs) == 0 {
		return system
	}
	return system + ragContextHeader + formatDocs(docs)
}
