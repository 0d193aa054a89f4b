// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package plugin

// callbackPrivate classifies a handler's visibility from its declared
// incoming/outgoing filters. Evaluation order is load-bearing: an explicit
// outgoing flag overrides whatever the incoming flag decided.
//
//	neither declared          -> public
//	incoming=false, no outgoing -> private
//	outgoing=true             -> private, always
func callbackPrivate(incoming, outgoing *bool) bool {
	private := false
	if incoming != nil {
		private = !*incoming
	}
	if outgoing != nil {
		private = *outgoing
	}
	return private
}
