// Package identity 管理节点身份
//
// 节点身份由一个 Ed25519 私钥与其派生出的 peer id 组成，
// 在构建时创建，生命周期内不再变化。
//
// 两种来源：
//   - Random: 密码学随机密钥
//   - FromSeed: 由一个字节种子确定性推导，相同种子得到相同 peer id
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrKeyGeneration 密钥生成失败
	ErrKeyGeneration = errors.New("identity: key generation failed")

	// ErrDerivePeerID 从公钥派生 peer id 失败
	ErrDerivePeerID = errors.New("identity: failed to derive peer id")
)

// ============================================================================
//                              NodeIdentity
// ============================================================================

// NodeIdentity 节点身份，构建后只读
type NodeIdentity struct {
	priv crypto.PrivKey
	id   peer.ID
}

// Random 生成随机身份
func Random() (*NodeIdentity, error) {
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	return fromPrivKey(priv)
}

// FromSeed 由单字节种子生成确定性身份
//
// 私钥种子为 32 字节，首字节为 seed，其余为零。
func FromSeed(seed uint8) (*NodeIdentity, error) {
	priv, err := SeededKey(seed)
	if err != nil {
		return nil, err
	}
	return fromPrivKey(priv)
}

// SeededKey 返回种子对应的 libp2p 私钥
func SeededKey(seed uint8) (crypto.PrivKey, error) {
	var secret [ed25519.SeedSize]byte
	secret[0] = seed

	raw := ed25519.NewKeyFromSeed(secret[:])
	priv, err := crypto.UnmarshalEd25519PrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: seed %d: %v", ErrKeyGeneration, seed, err)
	}
	return priv, nil
}

// PeerIDFromSeed 种子对应的 peer id，用于构造目录表
func PeerIDFromSeed(seed uint8) (peer.ID, error) {
	id, err := FromSeed(seed)
	if err != nil {
		return "", err
	}
	return id.ID(), nil
}

func fromPrivKey(priv crypto.PrivKey) (*NodeIdentity, error) {
	id, err := peer.IDFromPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivePeerID, err)
	}
	return &NodeIdentity{priv: priv, id: id}, nil
}

// ID 返回 peer id
func (n *NodeIdentity) ID() peer.ID { return n.id }

// PrivKey 返回签名私钥
func (n *NodeIdentity) PrivKey() crypto.PrivKey { return n.priv }

// PubKey 返回公钥
func (n *NodeIdentity) PubKey() crypto.PubKey { return n.priv.GetPublic() }

// String 返回 peer id 的字符串形式
func (n *NodeIdentity) String() string { return n.id.String() }
