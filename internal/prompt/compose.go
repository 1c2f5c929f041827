// Package prompt builds the instruction text sent to the video model.
package prompt

import "strings"

// DefaultStyle is used when the caller leaves the mood empty.
const DefaultStyle = "Luxury real estate style, clean and professional"

const constraints = `OUTPUT FORMAT (MANDATORY):
- Aspect Ratio: 9:16 (vertical)
- Portrait orientation ONLY
- No horizontal or square output

CRITICAL CONSTRAINTS:
- Do NOT add, remove, replace, or modify ANY objects.
- Do NOT move, rotate, resize, or animate any objects.
- All furniture, decor, lighting, textures, materials, and layout MUST remain IDENTICAL to the original image.
- No new elements, no disappearing elements, no deformation.

ONLY allowed motion:
- Camera movement ONLY.
- No object motion of any kind.

CAMERA RULES:
- First-person perspective
- Slow cinematic push-in
- Camera starts FAR from the room entrance
- Camera moves forward smoothly toward the center of the room
- Straight forward motion only
- No pan, no tilt, no roll
- Stable, realistic dolly movement`

const scene = `Generate a cinematic vertical video (9:16) from the uploaded image.
The scene must remain EXACTLY the same as the original image.

Camera movement: A slow, smooth forward dolly shot from a distant first-person viewpoint, gradually approaching the room interior.`

// Compose merges the fixed camera constraints with the user's mood.
func Compose(mood string) string {
	style := strings.TrimSpace(mood)
	if style == "" {
		style = DefaultStyle
	}
	parts := []string{constraints, scene, "Mood/Style: " + style}
	return strings.Join(parts, "\n\n")
}
