package signal

// Partition splits channels into k contiguous disjoint ranges. Remainder
// channels are distributed to the first ranges. Number of ranges is never
// greater than number of channels.
func Partition(channels, k int) []Range {
	if channels <= 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	if k > channels {
		k = channels
	}
	ranges := make([]Range, k)
	size, rem := channels/k, channels%k
	from := 0
	for i := range ranges {
		n := size
		if i < rem {
			n++
		}
		ranges[i] = Range{From: from, To: from + n}
		from += n
	}
	return ranges
}

// Seed derives a reproducible RNG seed for the channel. The result depends
// only on base seed and absolute channel index, so it doesn't change with
// the number of threads.
func Seed(base uint64, channel int) uint64 {
	z := base + uint64(channel+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
