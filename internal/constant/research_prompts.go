package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleModel     = "model"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"
)

const (
	// AnalyzeQuestionPromptTemplate expects the research question.
	AnalyzeQuestionPromptTemplate = `Analyze the following research question: %s

Provide:
1. The core theme and keywords of the question
2. A research complexity assessment
3. An estimated research time in minutes
4. The main research directions
5. The types of information sources required

Return the result strictly as a JSON object with this shape:

{
  "coreTheme": "...",
  "keywords": ["..."],
  "complexity": "simple" | "medium" | "complex",
  "estimatedTime": 30,
  "researchDirections": ["..."],
  "sourceTypes": ["..."]
}`

	// GeneratePlanPromptTemplate expects the question and the serialized analysis.
	GeneratePlanPromptTemplate = `Based on the question analysis, produce a detailed research plan.

Question: %s
Analysis: %s

Generate a research plan strictly in the following JSON format:

{
  "title": "Research title",
  "description": "Research description",
  "objectives": ["objective 1", "objective 2"],
  "methodology": ["method 1", "method 2"],
  "expectedOutcome": "Expected outcome",
  "sections": [
    {
      "title": "Section 1 title",
      "description": "Section 1 description",
      "priority": 1
    },
    {
      "title": "Section 2 title",
      "description": "Section 2 description",
      "priority": 2
    }
  ]
}

Make sure the sections array contains at least 3 sections, each with
title, description and priority fields.`

	// ResearchSectionSystemPrompt frames the combined search/analyze/draft pass.
	ResearchSectionSystemPrompt = `You are a professional research expert able to complete a full section research pass. Your capabilities:

**Information gathering**: evaluate the supplied findings, identify authoritative material and reliable data, and note gaps.

**Deep analysis**: think step by step, extract key information and core viewpoints, surface patterns and connections, and assess reliability and recency.

**Content creation**: produce structured, high-quality content in clean Markdown with concrete data and cited sources, with clear logic and full argumentation.

Work through gathering, analysis, and drafting in order and make sure each step is complete before the next. The output must be academic and professional.`

	// ResearchSectionPromptTemplate expects section title, description,
	// priority, and the retrieved findings block.
	ResearchSectionPromptTemplate = `Complete the full research pass for the section "%s", covering information gathering, deep analysis and content generation.

Section title: %s
Section description: %s
Section priority: %d

Retrieved findings:
%s

Steps:

1. **Gathering**: review the retrieved findings above for relevant, authoritative material covering core concepts, history, technical detail and applied cases.

2. **Analysis**: think step by step; extract the key information, important data, facts and trends; assess reliability and relevance.

3. **Drafting**: based on the analysis, generate the complete section content in Markdown with a clear heading hierarchy, concrete data and cited sources.

Return only the final section content in Markdown, containing the complete research result.`

	// GenerateReportPromptTemplate expects the question and the ordered
	// section contents block.
	GenerateReportPromptTemplate = `Integrate the following section contents into one complete, modern research report:

Research question: %s

Section contents:
%s

Produce a structured research report with:

**Format requirements:**
1. Standard Markdown structure with a clear hierarchy
2. Each major section under an H2 heading
3. Subsections under H3 and H4 headings
4. Bold and italic emphasis for important content

**Content structure:**
1. **Executive summary** - concise overview of the core findings (150-200 words)
2. **Background** - the problem context and why it matters
3. **Main findings** - the core content integrated per section
4. **Key insights** - distilled viewpoints and trends
5. **Recommendations** - concrete, actionable suggestions
6. **Conclusion and outlook** - summary and future directions
7. **References** - related resource links

**Presentation:**
- Tables for comparative data
- Lists for key points
- Blockquotes for important viewpoints
- Code samples where applicable

Return only the complete report in Markdown; it will be rendered into a styled HTML page downstream.`
)
