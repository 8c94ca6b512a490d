// register.go wires every operator constructor in this package into the
// factory table keyed by the problem-file type name. Packages that build
// graphs from configuration only need to import sim/operators.
package operators

func init() {
	Register("forward_transform", NewForwardTransform)
	Register("inverse_transform", NewInverseTransform)
	Register("derivative", NewDerivative)
	Register("gradient", NewGradient)
	Register("laplacian", NewLaplacian)
	Register("strain", NewStrain)
	Register("polynomial", NewPolynomial)
	Register("linear_combination", NewLinearCombination)
	Register("multiply", NewMultiply)
	Register("laplacian_symbol", NewLaplacianSymbol)
}
