package llm

import (
	"fmt"
	"strings"
)

const evaluatorSystemMessage = "You are a senior hiring assessor for a talent evaluation platform. " +
	"You grade candidate work fairly, consistently, and against the stated task only. " +
	"You always respond with a single JSON object and nothing else."

const generatorSystemMessage = "You are a hiring expert who designs realistic job-simulation assessments. " +
	"You always respond with a single JSON object and nothing else."

const advisorSystemMessage = "You are an experienced career coach. " +
	"You always respond with a single JSON object and nothing else."

const personaSystemMessage = "You are role-playing a workplace persona inside a job-simulation assessment. " +
	"Stay in character. You always respond with a single JSON object and nothing else."

func systemMessageFor(kind Kind) string {
	switch kind {
	case KindQuestionGeneration:
		return generatorSystemMessage
	case KindCareerAdvice:
		return advisorSystemMessage
	case KindChat:
		return personaSystemMessage
	default:
		return evaluatorSystemMessage
	}
}

func buildPrompt(kind Kind, payload Payload) (string, error) {
	switch kind {
	case KindSubmissionEvaluation:
		return buildSubmissionEvaluationPrompt(payload), nil
	case KindQuestionGeneration:
		return buildQuestionGenerationPrompt(payload), nil
	case KindCareerAdvice:
		return buildCareerAdvicePrompt(payload), nil
	case KindChat:
		return buildChatPrompt(payload), nil
	case KindInterviewAnalysis:
		return buildInterviewAnalysisPrompt(payload), nil
	default:
		return "", fmt.Errorf("unsupported evaluation kind: %s", kind)
	}
}

func buildSubmissionEvaluationPrompt(payload Payload) string {
	var sb strings.Builder
	sb.WriteString("Evaluate the candidate's answer to the following assessment task.\n\n")
	sb.WriteString("Task:\n---\n")
	sb.WriteString(payload.Prompt)
	sb.WriteString("\n---\n\n")

	switch payload.StepType {
	case "code_review":
		sb.WriteString("The candidate was asked to review the code above. Judge correctness of the issues found, ")
		sb.WriteString("depth of reasoning, prioritization of problems, and clarity of the written review.\n\n")
	case "document_analysis":
		sb.WriteString("The candidate was asked to analyze the document above. Judge accuracy of the analysis, ")
		sb.WriteString("coverage of the key points, and quality of the conclusions drawn.\n\n")
	case "ai_chat_persona":
		sb.WriteString("The answer below is a transcript of the candidate's conversation with a workplace persona. ")
		sb.WriteString("Judge communication skill, professionalism, and how well the candidate achieved the task goal.\n\n")
	default:
		sb.WriteString("Judge relevance to the task, reasoning quality, completeness, and clarity of writing.\n\n")
	}

	sb.WriteString("Candidate's answer:\n---\n")
	sb.WriteString(payload.Answer)
	sb.WriteString("\n---\n\n")
	sb.WriteString("Respond ONLY with a JSON object of this shape:\n")
	sb.WriteString(`{"score": <number 0-100>, "feedback": "<specific, constructive feedback>", "strengths": ["<strength>"], "improvements": ["<improvement>"]}`)
	return sb.String()
}

func buildQuestionGenerationPrompt(payload Payload) string {
	var sb strings.Builder
	sb.WriteString("Draft assessment steps for a job simulation targeting the following role.\n\n")
	sb.WriteString("Role description:\n---\n")
	sb.WriteString(payload.Role)
	sb.WriteString("\n---\n\n")
	sb.WriteString("Produce 3 to 5 realistic work tasks mixing types among: free_text, code_review, document_analysis, multiple_choice.\n")
	sb.WriteString("For multiple_choice include exactly 4 options and the correct one.\n\n")
	sb.WriteString("Respond ONLY with a JSON object of this shape:\n")
	sb.WriteString(`{"questions": [{"type": "<type>", "prompt": "<full task text>", "time_limit_minutes": <number>, "options": ["<option>"], "correct_answer": "<option or empty>"}]}`)
	return sb.String()
}

func buildCareerAdvicePrompt(payload Payload) string {
	var sb strings.Builder
	sb.WriteString("A candidate completed a job-simulation assessment. Give them career advice based on their performance.\n\n")
	sb.WriteString("Target role:\n")
	sb.WriteString(payload.Role)
	sb.WriteString("\n\nPerformance summary:\n---\n")
	sb.WriteString(payload.Answer)
	sb.WriteString("\n---\n\n")
	sb.WriteString("Respond ONLY with a JSON object of this shape:\n")
	sb.WriteString(`{"feedback": "<advice text>", "strengths": ["<strength>"], "improvements": ["<area to improve>"]}`)
	return sb.String()
}

func buildChatPrompt(payload Payload) string {
	var sb strings.Builder
	sb.WriteString("Persona and scenario:\n---\n")
	sb.WriteString(payload.Prompt)
	sb.WriteString("\n---\n\nConversation so far:\n---\n")
	sb.WriteString(payload.Transcript)
	sb.WriteString("\n---\n\n")
	sb.WriteString("Write the persona's next message, staying in character.\n")
	sb.WriteString("Respond ONLY with a JSON object of this shape:\n")
	sb.WriteString(`{"reply": "<the persona's next message>"}`)
	return sb.String()
}

func buildInterviewAnalysisPrompt(payload Payload) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following interview transcript from a job-simulation assessment.\n\n")
	sb.WriteString("Transcript:\n---\n")
	sb.WriteString(payload.Transcript)
	sb.WriteString("\n---\n\n")
	sb.WriteString("Judge communication, domain knowledge, and problem-solving shown in the conversation.\n")
	sb.WriteString("Respond ONLY with a JSON object of this shape:\n")
	sb.WriteString(`{"score": <number 0-100>, "feedback": "<analysis>", "strengths": ["<strength>"], "improvements": ["<improvement>"]}`)
	return sb.String()
}
