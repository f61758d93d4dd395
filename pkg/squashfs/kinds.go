package squashfs

import "github.com/deploymenttheory/go-squashfs/internal/types"

// Kind classifies a resolved inode.
type Kind = types.InodeKind

const (
	KindRegular   Kind = types.KindRegular
	KindDirectory Kind = types.KindDirectory
	KindSymlink   Kind = types.KindSymlink
	KindOther     Kind = types.KindOther
)
