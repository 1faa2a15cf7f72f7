package voice

import (
	pcmfmt "github.com/chimebot/chime/pkg/audio"
)

// mixFrame sums the next frame of every active clip into a single canonical
// PCM frame, applying per-clip and master volume before summation and
// saturating the result. Clips that delivered everything are returned so
// the caller can retire them. A nil frame means nothing was audible.
func mixFrame(clips []*playingClip, masterVolume float64) (frame []byte, finished []*playingClip) {
	type contribution struct {
		samples []int16
		volume  float64
	}

	contributions := make([]contribution, 0, len(clips))
	for _, c := range clips {
		pcm, done := c.nextFrame()
		if done {
			finished = append(finished, c)
			continue
		}
		if len(pcm) == 0 {
			continue
		}
		contributions = append(contributions, contribution{
			samples: pcmfmt.LEToPCMInt16(pcm),
			volume:  c.getVolume() * masterVolume,
		})
	}

	if len(contributions) == 0 {
		return nil, finished
	}

	mixed := make([]int32, pcmfmt.FrameBytes/pcmfmt.BytesPerSample)
	for _, c := range contributions {
		for i, s := range c.samples {
			mixed[i] += pcmfmt.ScaleSample(s, c.volume)
		}
	}

	out := make([]int16, len(mixed))
	for i, v := range mixed {
		out[i] = pcmfmt.SaturateInt16(v)
	}
	return pcmfmt.PCMInt16ToLE(out), finished
}
