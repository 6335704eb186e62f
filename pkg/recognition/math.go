package recognition

import "math"

// EuclideanDistance calculates the Euclidean distance between two descriptors.
func EuclideanDistance(d1, d2 Descriptor) float64 {
	var sum float64
	for i := range d1 {
		diff := float64(d1[i] - d2[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// AverageDescriptors computes the component-wise mean of the given
// descriptors. Combining samples of the same face from several poses this way
// yields a single embedding that is more robust than any one sample.
func AverageDescriptors(descriptors []Descriptor) Descriptor {
	var avg Descriptor
	if len(descriptors) == 0 {
		return avg
	}
	if len(descriptors) == 1 {
		return descriptors[0]
	}

	for _, d := range descriptors {
		for i, v := range d {
			avg[i] += v
		}
	}

	count := float32(len(descriptors))
	for i := range avg {
		avg[i] /= count
	}

	return avg
}
