package medrax

import (
	"fmt"
	"os"

	"github.com/coolkidhugh/streamlit-medrax-agent/core"
	"github.com/coolkidhugh/streamlit-medrax-agent/tool"
)

// NewSegmentTool returns the segment_image tool. Its description steers
// localization questions ("where", "outline", "highlight") here, and tells
// the planner to obtain a lesion description first when none is known; the
// executor does not enforce that ordering.
func NewSegmentTool() tool.Tool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"image_path": map[string]any{
				"type":        "string",
				"description": "Local filesystem path of the image to segment",
			},
			"lesion_description": map[string]any{
				"type": "string",
				"description": "Description of the lesion to locate, e.g. '8 mm " +
					"ground-glass nodule'. Obtain one via classify_lesion first " +
					"if not already known.",
			},
		},
		"required": []string{"image_path", "lesion_description"},
	}

	return tool.NewFunctionTool(
		"segment_image",
		"Locate a described lesion in the uploaded medical image and produce a "+
			"new annotated image with the lesion highlighted. Use for questions "+
			"like 'where is it?', 'outline the nodule' or 'highlight the "+
			"abnormality'. Returns the path of the annotated image file.",
		params,
		segmentImage,
	)
}

// segmentImage is a stub for the real segmentation model: it copies the
// source image into a run-scoped artifact so concurrent sessions never
// overwrite each other's output, and returns the artifact's path.
func segmentImage(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	imagePath, _ := args["image_path"].(string)
	description, _ := args["lesion_description"].(string)

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("cannot read image %s: %w", imagePath, err)
	}

	artifactID := SegmentArtifactID(toolCtx.RunID())
	if err := toolCtx.SaveArtifact(artifactID, data); err != nil {
		return nil, fmt.Errorf("failed to save annotated image: %w", err)
	}

	toolCtx.LogInfo("medrax.segment.annotated",
		"image", imagePath,
		"target", description,
		"artifact", artifactID,
	)

	if p := toolCtx.ArtifactPath(artifactID); p != "" {
		return p, nil
	}
	return artifactID, nil
}

// SegmentArtifactID derives the annotated-image artifact name for a run.
func SegmentArtifactID(runID string) string {
	return fmt.Sprintf("segmented_%s.png", runID)
}
