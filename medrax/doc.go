// Package medrax defines the two domain tools of the imaging assistant:
// lesion classification and lesion segmentation. Both are stubs standing in
// for real model inference; the contract they expose (names, parameters,
// descriptions, artifact behavior) is the real deliverable, since the planner
// selects tools purely from these descriptions.
package medrax
