package rag

import (
	"strings"

	"github.com/hyperjump/banglarag/internal/models"
)

// NotFoundBengali is the reply for questions the documents cannot answer.
const NotFoundBengali = "এই তথ্য প্রদত্ত ডকুমেন্টে পাওয়া যায়নি।"

const instructions = `Instructions:
Your knowledge is limited to the documents above. Do not answer from outside them.
1. Search thoroughly: look for every word and reference of the question across all pages, paragraphs and footnotes.
   If the documents contain multiple-choice questions or options, cross-check them and prefer the main text of the book.
2. Answer only from what the documents contain.
   If the answer is not in the documents, say so in the language of the question. For a Bengali question reply: "` + NotFoundBengali + `"
   If the context is insufficient, ask for more relevant context.
   Answer in the language of the question (Bengali or English).
3. For Bengali questions keep spelling and conjuncts correct, always quote the source text verbatim
   ("পাঠ্য বই এ বলা হয়েছে: '...'"), and use the honorific register (আপনি, তিনি, তাঁরা).
4. Remember earlier questions: resolve pronouns such as "তিনি" against the conversation history.
5. If several answers are plausible, ask "আপনি কি বোঝাতে চেয়েছেন [option 1] না [option 2]?".
   If sources disagree, present both with their sources instead of choosing one silently.`

// BuildPrompt composes the generation prompt from the retrieved chunks, the prior turns
// and the question.
func BuildPrompt(hits []*models.SearchHit, history []models.Turn, question string) string {
	var b strings.Builder
	b.WriteString("You are an expert assistant for analyzing Bengali documents. Answer questions based on the provided context.\n\n")
	b.WriteString("Context from documents:\n")
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(h.Chunk.Content)
	}
	b.WriteString("\n\nConversation History:\n")
	b.WriteString(FormatHistory(history))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(instructions)
	b.WriteString("\n\nAnswer:\n")
	return b.String()
}

// FormatHistory renders turns as alternating Human/Assistant lines.
func FormatHistory(history []models.Turn) string {
	lines := make([]string, 0, 2*len(history))
	for _, t := range history {
		lines = append(lines, "Human: "+t.Question, "Assistant: "+t.Answer)
	}
	return strings.Join(lines, "\n")
}

// CondensePrompt asks for a follow-up question rewritten to stand alone.
func CondensePrompt(history []models.Turn, question string) string {
	var b strings.Builder
	b.WriteString("Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.\n\n")
	b.WriteString("Chat History:\n")
	b.WriteString(FormatHistory(history))
	b.WriteString("\nFollow Up Input: ")
	b.WriteString(question)
	b.WriteString("\nStandalone question:")
	return b.String()
}
