package gemini

import (
	"fmt"
	"strings"
)

const FarmHealthPromptTemplate = `You are an agronomy analysis engine producing a crop health situation report from field imagery.

## PRIMARY OBJECTIVE
Assess the crop health visible in the attached images (NDVI maps, deficiency overlays or field photos) and return one structured analysis.

## CRITICAL RULES
1. Output ONLY valid JSON matching the schema below - no markdown, no explanations, no preamble
2. Your response must start with { and end with }
3. Numbers are plain JSON numbers without units or percent signs
4. healthScore is 0-100, higher is healthier
5. List interventions from most to least urgent; at most 5
6. If a value cannot be judged from the images or the farm context, omit the field

---

## FARM CONTEXT
%s

---

## OUTPUT SCHEMA
{
  "farmName": string,
  "cropType": string,
  "scanDate": "YYYY-MM-DD",
  "healthScore": number,
  "primaryDiagnosis": string,
  "detailedExplanation": string,
  "confidenceScore": number,
  "executiveSummary": string,
  "keyMetrics": {"timeToAction": string, "yieldRisk": string, "ndviRange": string},
  "soil": {"ph": number, "nitrogen": number, "phosphorus": number, "potassium": number, "moisture": number, "organicMatter": number},
  "impact": {"limitingFactor": string, "rootCause": string, "predictedImpact": string},
  "interventions": [
    {"priority": "P1|P2|P3", "action": string, "goal": string, "impact": string, "materials": [string],
     "timing": string, "costLevel": "Low|Medium|High", "confidence": number, "expectedOutcome": string}
  ],
  "monitoring": [{"phase": string, "timeframe": string, "actions": [string]}]
}`

// BuildFarmHealthPrompt fills the template with the known farm facts, one per line.
func BuildFarmHealthPrompt(farm map[string]string) string {
	if len(farm) == 0 {
		return fmt.Sprintf(FarmHealthPromptTemplate, "No additional context provided.")
	}

	keys := []string{"farmName", "cropType", "location", "areaHectares", "scanDate"}
	var b strings.Builder
	for _, k := range keys {
		if v := strings.TrimSpace(farm[k]); v != "" {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}
	if b.Len() == 0 {
		return fmt.Sprintf(FarmHealthPromptTemplate, "No additional context provided.")
	}
	return fmt.Sprintf(FarmHealthPromptTemplate, strings.TrimSuffix(b.String(), "\n"))
}
