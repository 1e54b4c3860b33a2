package agent

import "github.com/coolkidhugh/streamlit-medrax-agent/core"

// Provider supplies dynamic instruction text at runtime. Implementations can
// derive instructions from the run (image path, session) or environment.
type Provider interface {
	Instruction(*core.RunContext) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as
// Providers.
type Func func(*core.RunContext) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(rc *core.RunContext) (string, error) { return f(rc) }

// Instruction represents either a static instruction string or a dynamic
// provider. This mirrors a union of string | provider in a Go-idiomatic way.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(*core.RunContext) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(rc *core.RunContext) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(rc)
	}
	return i.text, nil
}

// SystemInstructions is the governing prompt of the imaging assistant. The
// classify-before-segment guidance is advisory planning text, not an enforced
// invariant: the executor runs whatever the planner asks for.
const SystemInstructions = `You are a professional medical imaging assistant.
Answer the user's questions about their uploaded image concisely and
accurately.

You have specialist tools available. Always pass the current image path as
the image_path argument, and always bind image_path first. Use
classify_lesion for presence/absence or classification questions. Use
segment_image for localization questions; if no lesion description is known
yet, call classify_lesion first to obtain one. When a tool produced an
annotated image, mention its file name in your answer so it can be shown to
the user. If a tool reports an error, reconsider your approach instead of
repeating the same call.`
