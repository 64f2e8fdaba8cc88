package games

// kenoPayouts maps [risk][picks][hits] -> multiplier. A multiplier of 0 is
// a loss. Every table satisfies, exactly under the hypergeometric draw
// distribution (10 of 40 without replacement),
//
//	sum over hits of P(hits)*multiplier = 0.99
//
// with multipliers floored to 4 decimal places, so realized return never
// exceeds the declared edge. The risk tiers share that identity and differ
// only in variance: "low" spreads the return across small hit counts,
// "high" concentrates it near the maximum.
var kenoPayouts = map[string]map[int]map[int]float64{
	"classic": {
		1:  {0: 0, 1: 3.96},
		2:  {0: 0, 1: 1.5141, 2: 7.0658},
		3:  {0: 0, 1: 0, 2: 3.5058, 3: 42.0696},
		4:  {0: 0, 1: 0, 2: 0, 3: 19.4572, 4: 97.2861},
		5:  {0: 0, 1: 0, 2: 0, 3: 8.7983, 4: 23.4621, 5: 175.9664},
		6:  {0: 0, 1: 0, 2: 0, 3: 5.0422, 4: 10.5045, 5: 42.0183, 6: 315.1379},
		7:  {0: 0, 1: 0, 2: 0, 3: 3.2495, 4: 6.4991, 5: 16.2477, 6: 64.991, 7: 324.955},
		8:  {0: 0, 1: 0, 2: 0, 3: 0, 4: 8.2591, 5: 22.0243, 6: 55.0608, 7: 275.304, 8: 1101.2162},
		9:  {0: 0, 1: 0, 2: 0, 3: 1.5503, 4: 3.0007, 5: 8.0019, 6: 15.0037, 7: 44.0109, 8: 60.0149, 9: 85.0211},
		10: {0: 0, 1: 0, 2: 0, 3: 1.1029, 4: 2.2059, 5: 5.5148, 6: 13.2356, 7: 39.7069, 8: 55.1484, 9: 82.7227, 10: 110.2969},
	},
	"low": {
		1:  {0: 0, 1: 3.96},
		2:  {0: 0, 1: 1.6087, 2: 6.4349},
		3:  {0: 0, 1: 1.2912, 2: 1.9368, 3: 12.9124},
		4:  {0: 0, 1: 0, 2: 3.192, 3: 4.9108, 4: 49.1084},
		5:  {0: 0, 1: 0, 2: 2.2202, 3: 3.1453, 4: 9.2511, 5: 92.5113},
		6:  {0: 0, 1: 0, 2: 1.6901, 3: 2.3047, 4: 4.6095, 5: 18.4382, 6: 153.652},
		7:  {0: 0, 1: 0, 2: 1.4071, 3: 1.8762, 4: 2.6803, 5: 6.7008, 6: 33.5041, 7: 268.0335},
		8:  {0: 0, 1: 0, 2: 1.1984, 3: 1.558, 4: 2.1572, 5: 3.5954, 6: 11.9848, 7: 71.9088, 8: 479.3925},
		9:  {0: 0, 1: 0, 2: 1.0992, 3: 1.299, 4: 1.6988, 5: 2.4982, 6: 7.4947, 7: 49.9652, 8: 249.8262, 9: 999.3048},
		10: {0: 0, 1: 0, 2: 0.9808, 3: 1.1769, 4: 1.4712, 5: 1.9616, 6: 4.904, 7: 19.6161, 8: 78.4644, 9: 392.3224, 10: 1961.6124},
	},
	"medium": {
		1:  {0: 0, 1: 3.96},
		2:  {0: 0, 1: 1.3547, 2: 8.1284},
		3:  {0: 0, 1: 0, 2: 3.432, 3: 42.9},
		4:  {0: 0, 1: 0, 2: 2.3454, 3: 7.8181, 4: 78.1819},
		5:  {0: 0, 1: 0, 2: 1.4801, 3: 4.4405, 4: 17.7621, 5: 148.0181},
		6:  {0: 0, 1: 0, 2: 0, 3: 4.3341, 4: 13.0025, 5: 54.1773, 6: 433.4184},
		7:  {0: 0, 1: 0, 2: 0, 3: 2.7625, 4: 7.3668, 5: 22.1005, 6: 92.0854, 7: 736.6834},
		8:  {0: 0, 1: 0, 2: 0, 3: 1.6595, 4: 4.9787, 5: 13.2766, 6: 49.7875, 7: 248.9376, 8: 1659.5843},
		9:  {0: 0, 1: 0, 2: 0, 3: 2.0011, 4: 2.5014, 5: 5.0029, 6: 15.0087, 7: 100.0586, 8: 500.293, 9: 1000.586},
		10: {0: 0, 1: 0, 2: 0, 3: 1.4868, 4: 1.9825, 5: 3.965, 6: 9.9125, 7: 49.5628, 8: 247.8144, 9: 991.2579, 10: 4956.2898},
	},
	"high": {
		1:  {0: 0, 1: 3.96},
		2:  {0: 0, 1: 0, 2: 17.1599},
		3:  {0: 0, 1: 0, 2: 0, 3: 81.51},
		4:  {0: 0, 1: 0, 2: 0, 3: 9.139, 4: 274.17},
		5:  {0: 0, 1: 0, 2: 0, 3: 5.4558, 4: 36.3723, 5: 545.5845},
		6:  {0: 0, 1: 0, 2: 0, 3: 3.2055, 4: 16.0276, 5: 80.1382, 6: 801.3826},
		7:  {0: 0, 1: 0, 2: 0, 3: 2.1294, 4: 7.0981, 5: 35.4906, 6: 212.9438, 7: 1419.6259},
		8:  {0: 0, 1: 0, 2: 0, 3: 1.419, 4: 4.257, 5: 17.028, 6: 85.1401, 7: 567.6012, 8: 2838.0064},
		9:  {0: 0, 1: 0, 2: 0, 3: 0, 4: 4.0014, 5: 11.0039, 6: 56.0201, 7: 500.1795, 8: 800.2873, 9: 1000.3591},
		10: {0: 0, 1: 0, 2: 0, 3: 0, 4: 1.9194, 5: 7.6776, 6: 38.3884, 7: 191.9424, 8: 479.856, 9: 959.7121, 10: 4798.5608},
	},
}

// kenoMultiplier returns the payout multiplier for a risk level, number of
// picks and number of hits.
func kenoMultiplier(risk string, picks, hits int) float64 {
	if riskTable, ok := kenoPayouts[risk]; ok {
		if picksTable, ok := riskTable[picks]; ok {
			return picksTable[hits]
		}
	}
	return 0
}

func isValidKenoRisk(risk string) bool {
	_, ok := kenoPayouts[risk]
	return ok
}
