package ai

import "stashbot/internal/logger"

// SanitizePrompt sanitizes a prompt for debug logging
func SanitizePrompt(prompt string, full bool) string {
	maxLen := 200
	if full {
		maxLen = logger.MaxOracleContentLength
	}
	return logger.SanitizeString(prompt, maxLen)
}

// SanitizeResponse sanitizes an oracle response for debug logging
func SanitizeResponse(response string, full bool) string {
	maxLen := 200
	if full {
		maxLen = logger.MaxOracleContentLength
	}
	return logger.SanitizeString(response, maxLen)
}
