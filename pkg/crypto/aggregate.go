package crypto

import (
	"fmt"
	"sort"

	"github.com/bosagora-go/agora-node/pkg/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// SortPublicKeys returns a copy of pubs sorted ascending by byte value.
// The signature aggregator and quorum builder both require a
// deterministic signer ordering so validator-bitmask indices agree
// across independently-run nodes.
func SortPublicKeys(pubs []types.PublicKey) []types.PublicKey {
	sorted := make([]types.PublicKey, len(pubs))
	copy(sorted, pubs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	return sorted
}

func jacobianOf(pub types.PublicKey) (secp256k1.JacobianPoint, error) {
	parsed, err := secp256k1.ParsePubKey(pub[:])
	if err != nil {
		return secp256k1.JacobianPoint{}, fmt.Errorf("parse public key: %w", err)
	}
	var j secp256k1.JacobianPoint
	parsed.AsJacobian(&j)
	return j, nil
}

func publicKeyOf(j *secp256k1.JacobianPoint) types.PublicKey {
	j.ToAffine()
	pub := secp256k1.NewPublicKey(&j.X, &j.Y)
	out, _ := types.PublicKeyFromBytes(pub.SerializeCompressed())
	return out
}

// SumPoints adds a set of curve points (public keys or nonce
// commitments). Used to build both P_sum (aggregate public key) and
// R_sum (aggregate nonce commitment).
func SumPoints(points []types.PublicKey) (types.PublicKey, error) {
	if len(points) == 0 {
		return types.PublicKey{}, fmt.Errorf("cannot sum zero points")
	}
	sum, err := jacobianOf(points[0])
	if err != nil {
		return types.PublicKey{}, err
	}
	for _, p := range points[1:] {
		j, err := jacobianOf(p)
		if err != nil {
			return types.PublicKey{}, err
		}
		var next secp256k1.JacobianPoint
		secp256k1.AddNonConst(&sum, &j, &next)
		sum = next
	}
	return publicKeyOf(&sum), nil
}

// SumScalars adds a set of scalars modulo the curve order.
func SumScalars(scalars []types.Scalar) types.Scalar {
	var sum secp256k1.ModNScalar
	for _, s := range scalars {
		var si secp256k1.ModNScalar
		si.SetByteSlice(s[:])
		sum.Add(&si)
	}
	out := sum.Bytes()
	var result types.Scalar
	copy(result[:], out[:])
	return result
}

// challengeScalar computes e = Hash(R_sum || P_sum || message) reduced
// modulo the curve order — the per-signature challenge every signer
// commits to, and the value the verifier recomputes.
func challengeScalar(Rsum, Psum types.PublicKey, message types.Hash) secp256k1.ModNScalar {
	e := HashMulti(Rsum[:], Psum[:], message[:])
	var scalar secp256k1.ModNScalar
	scalar.SetByteSlice(e[:types.ScalarSize])
	return scalar
}

// AggregateChallenge exposes challengeScalar's digest as a types.Hash,
// for callers (e.g. Flash signing coordination) that need to log or
// compare the challenge without performing scalar arithmetic directly.
func AggregateChallenge(Rsum, Psum types.PublicKey, message types.Hash) types.Hash {
	return HashMulti(Rsum[:], Psum[:], message[:])
}

// SignPartial produces one signer's contribution to an aggregate
// signature: s_i = k_i + e * x_i (mod n), where e is the shared
// challenge computed from the already-agreed R_sum and P_sum. Callers
// must have exchanged nonce public keys and computed R_sum/P_sum (see
// SumPoints) before calling this.
func SignPartial(priv, nonce *PrivateKey, Rsum, Psum types.PublicKey, message types.Hash) (types.Scalar, error) {
	e := challengeScalar(Rsum, Psum, message)

	x := priv.scalar()
	k := nonce.scalar()

	var ex secp256k1.ModNScalar
	ex.Set(&e)
	ex.Mul(&x)

	var s secp256k1.ModNScalar
	s.Set(&k)
	s.Add(&ex)

	sBytes := s.Bytes()
	var out types.Scalar
	copy(out[:], sBytes[:])
	return out, nil
}

// AggregateSignatures combines the per-signer partial scalars into the
// final (R_sum, s_sum) signature.
func AggregateSignatures(Rsum types.PublicKey, partials []types.Scalar) types.Signature {
	sSum := SumScalars(partials)
	var sig types.Signature
	copy(sig[:types.PublicKeySize], Rsum[:])
	copy(sig[types.PublicKeySize:], sSum[:])
	return sig
}

// VerifyAggregate checks that sig == (R_sum, s_sum) satisfies
// s_sum*G == R_sum + e*P_sum for e = challengeScalar(R_sum, P_sum, message).
// A single-signer signature produced by PrivateKey.Sign verifies the
// same way, as the n=1 case of this equation.
func VerifyAggregate(Psum types.PublicKey, sig types.Signature, message types.Hash) bool {
	var Rsum types.PublicKey
	copy(Rsum[:], sig[:types.PublicKeySize])

	var sScalar secp256k1.ModNScalar
	overflow := sScalar.SetByteSlice(sig[types.PublicKeySize:])
	if overflow {
		return false
	}

	RsumJ, err := jacobianOf(Rsum)
	if err != nil {
		return false
	}
	PsumJ, err := jacobianOf(Psum)
	if err != nil {
		return false
	}

	e := challengeScalar(Rsum, Psum, message)

	var left secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&sScalar, &left)

	var eP secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&e, &PsumJ, &eP)

	var right secp256k1.JacobianPoint
	secp256k1.AddNonConst(&RsumJ, &eP, &right)

	left.ToAffine()
	right.ToAffine()
	return left.X.Equals(&right.X) && left.Y.Equals(&right.Y)
}

// AddScalar returns a scalar offset by the hash of an arbitrary
// sequence marker, reduced modulo the curve order. Flash uses this to
// derive settle_kp_s = settle_kp_0 + Scalar(hashFull(s)) for each
// channel sequence id.
func AddScalar(base types.Scalar, offset types.Hash) types.Scalar {
	var b secp256k1.ModNScalar
	b.SetByteSlice(base[:])

	var o secp256k1.ModNScalar
	o.SetByteSlice(offset[:types.ScalarSize])

	b.Add(&o)
	out := b.Bytes()
	var result types.Scalar
	copy(result[:], out[:])
	return result
}

// DerivePublicKey returns the public key corresponding to a scalar.
func DerivePublicKey(scalar types.Scalar) (types.PublicKey, error) {
	priv, err := PrivateKeyFromBytes(scalar[:])
	if err != nil {
		return types.PublicKey{}, err
	}
	return priv.PublicKey(), nil
}
