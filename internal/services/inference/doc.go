// Package inference talks to the external AI backend that performs the
// compute-heavy media transforms.
//
// One POST request is issued per pipeline stage at
// {base}/{operation}/{encoded input path}/{encoded options}. The input path
// has every "/" replaced by a placeholder character and the options are
// "key-value" pairs joined by ",". The client returns a typed Result whose
// OutputPath is either confirmed by the backend's JSON response or, when the
// backend sends no usable body, the expected artifact found on disk.
//
// Requests are bounded by a configurable timeout. Retries are opt-in and only
// cover transport errors and 5xx responses.
package inference
