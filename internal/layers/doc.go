// Package layers implements forward and backward passes for neural network
// layer primitives with hand-derived gradients.
//
// Every forward function returns the layer output together with an opaque
// cache. The cache must be passed, unmodified, to the matching backward
// function, which returns the gradient of a scalar loss with respect to each
// differentiable input of the forward call, in the order they appear in the
// forward signature.
//
// # Layers
//
//   - Affine: fully connected transform of flattened input
//   - ReLU: elementwise rectifier
//   - BatchNorm / SpatialBatchNorm: per-feature (per-channel) normalization
//   - Dropout: inverted dropout
//   - ConvNaive: direct sliding-window 2D convolution
//   - MaxPoolNaive: sliding-window 2D max pooling
//   - SVMLoss / SoftmaxLoss: classification losses
//
// Composite "sandwich" layers (AffineReLU, ConvReLUPool, ...) chain the
// primitives for convenience.
//
// # Example
//
//	out, cache, err := layers.AffineForward(x, w, b)
//	if err != nil {
//	    return err
//	}
//	loss, dout, err := layers.SoftmaxLoss(out, y)
//	if err != nil {
//	    return err
//	}
//	dx, dw, db, err := layers.AffineBackward(dout, cache)
//
// All functions are synchronous and hold no global state. Batch
// normalization running statistics live in the caller's BatchNormParam and
// must not be shared between concurrent forward calls.
package layers
