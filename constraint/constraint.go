package constraint

import (
	"github.com/akmonengine/boule/actor"
)

// CombineElasticity returns the restitution of a pair: the product of both
// materials, so one dead body kills the bounce
func CombineElasticity(matA, matB actor.Material) float64 {
	return matA.Elasticity * matB.Elasticity
}

// CombineFriction returns the friction coefficient of a pair
func CombineFriction(matA, matB actor.Material) float64 {
	return matA.Friction * matB.Friction
}
