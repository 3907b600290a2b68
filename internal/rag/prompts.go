package rag

import "fmt"

const answerSystemPrompt = "You are a documentation assistant. Answer questions " +
	"using only the provided context. If the context does not contain the " +
	"answer, say that you don't know."

// answerPrompt asks for an answer grounded in one context block.
func answerPrompt(query, block string) string {
	return fmt.Sprintf(`Context information is below.
---------------------
%s
---------------------
Given the context information and not prior knowledge, answer the query.
Query: %s
Answer:`, block, query)
}

// refinePrompt asks to improve an existing answer with additional context.
func refinePrompt(query, existing, block string) string {
	return fmt.Sprintf(`The original query is as follows: %s
We have provided an existing answer: %s
We have the opportunity to refine the existing answer with some more context below.
---------------------
%s
---------------------
Given the new context, refine the original answer to better answer the query. If the context is not useful, return the original answer.
Refined answer:`, query, existing, block)
}
