package medrax

import (
	"fmt"
	"os"

	"github.com/coolkidhugh/streamlit-medrax-agent/core"
	"github.com/coolkidhugh/streamlit-medrax-agent/tool"
)

// Placeholder report emitted until the real classification model is plugged
// in. Mirrors the output shape the reply composer expects: finding, location,
// size, recommendation.
const stubReport = "Analysis report: an 8 mm ground-glass nodule (GGO) detected " +
	"in the right upper lobe; follow-up imaging is recommended."

// NewClassifyTool returns the classify_lesion tool. The description verbs
// ("whether", "classify", "what is") are chosen to map presence/absence and
// classification questions to this tool and never to segmentation.
func NewClassifyTool() tool.Tool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"image_path": map[string]any{
				"type":        "string",
				"description": "Local filesystem path of the image to analyze",
			},
		},
		"required": []string{"image_path"},
	}

	return tool.NewFunctionTool(
		"classify_lesion",
		"Analyze the uploaded medical image to determine whether an abnormality "+
			"is present and classify it. Use for questions like 'is this normal?', "+
			"'is there a lesion?' or 'what is this finding?'. Returns a textual "+
			"analysis report.",
		params,
		classifyLesion,
	)
}

func classifyLesion(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	imagePath, _ := args["image_path"].(string)
	if _, err := os.Stat(imagePath); err != nil {
		return nil, fmt.Errorf("cannot read image %s: %w", imagePath, err)
	}

	toolCtx.LogInfo("medrax.classify.analyzed", "image", imagePath, "run", toolCtx.RunID())

	return stubReport, nil
}
