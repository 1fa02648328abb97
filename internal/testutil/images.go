package testutil

// SolidImage returns an RGBA buffer filled with one opaque color.
func SolidImage(width, height int, r, g, b byte) []byte {
	pix := make([]byte, width*height*4)

	for i := 0; i < width*height; i++ {
		pix[i*4] = r
		pix[i*4+1] = g
		pix[i*4+2] = b
		pix[i*4+3] = 255
	}

	return pix
}

// GradientImage returns an RGBA buffer where red rises with x, green
// with y, and blue with both, so every bin of a scan differs.
func GradientImage(width, height int) []byte {
	pix := make([]byte, width*height*4)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			pix[i] = byte(255 * x / width)
			pix[i+1] = byte(255 * y / height)
			pix[i+2] = byte(255 * (x + y) / (width + height))
			pix[i+3] = 255
		}
	}

	return pix
}

// StripeImage returns an RGBA buffer of alternating black and white
// horizontal stripes of the given height.
func StripeImage(width, height, stripe int) []byte {
	if stripe < 1 {
		stripe = 1
	}

	pix := make([]byte, width*height*4)

	for y := 0; y < height; y++ {
		v := byte(0)
		if (y/stripe)%2 == 0 {
			v = 255
		}

		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = v, v, v, 255
		}
	}

	return pix
}
