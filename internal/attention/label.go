package attention

// Label is the attentiveness verdict for one face in one frame
type Label string

const (
	LabelAttentive  Label = "Attentive"
	LabelEyesClosed Label = "Eyes Closed"
	LabelHeadTurned Label = "Head Turned"
)

// FlagNoFace is raised for an empty frame under NoFaceInattentive
const FlagNoFace = "No Face"

// ResolveLabel applies the fixed priority: eyes closed, then head turned, then attentive.
func ResolveLabel(eyesClosed, headTurned bool) Label {
	switch {
	case eyesClosed:
		return LabelEyesClosed
	case headTurned:
		return LabelHeadTurned
	default:
		return LabelAttentive
	}
}
