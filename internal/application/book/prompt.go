// Package book 实现分块生成与整书组装
package book

import (
	"fmt"
	"strings"
)

// systemPrompt 首次生成使用的系统指令
func systemPrompt(language string, currentWordCount int) string {
	return fmt.Sprintf("You are an author writing a detailed book in %s. Provide long, comprehensive responses with at least %d words per chunk. Do not use asterisks (*) in the response text.",
		language, currentWordCount)
}

// topUpSystemPrompt 补写调用使用的系统指令
func topUpSystemPrompt(language string) string {
	return fmt.Sprintf("You are an author writing a detailed book in %s. Provide long, comprehensive responses. Do not use asterisks (*) in the response text.",
		language)
}

// chunkPrompt 构建新章节或续写的用户指令
func chunkPrompt(topic string, currentWordCount int, language string, isNewChapter bool) string {
	if isNewChapter {
		return fmt.Sprintf("Write a detailed chapter for a book about %s in %s. This is around word %d of the book. Start with a chapter title, then write at least %d words of content.",
			topic, language, currentWordCount, currentWordCount)
	}
	return fmt.Sprintf("Continue writing a detailed book about %s in %s. This is around word %d of the book. Write at least %d words, ensuring the narrative flows smoothly from the previous section.",
		topic, language, currentWordCount, currentWordCount)
}

// topUpPrompt 字数不足时的补写指令
func topUpPrompt(currentWordCount int) string {
	return fmt.Sprintf("Continue the previous text, adding more details and expanding the narrative. Write at least %d more words. Do not use asterisks (*) in the response text.",
		currentWordCount)
}

// CountWords 按空白切分统计词数
func CountWords(s string) int {
	return len(strings.Fields(s))
}
