package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-space/common"
)

// commands wraps a device command buffer, validating handles as they are recorded and collecting
// every resource the submission references so its fence can be recorded on them.
type commands struct {
	r    *renderer
	dev  Commands
	used map[Handle]struct{}
	err  error
	done bool
	open bool
}

func (c *commands) BeginComputePass() ComputePass {
	c.beginPass()
	return &computePass{c: c, dev: c.dev.BeginComputePass()}
}

func (c *commands) BeginRenderPass(pass PassKind) RenderPass {
	c.beginPass()
	return &renderPass{c: c, dev: c.dev.BeginRenderPass(pass)}
}

func (c *commands) beginPass() {
	if c.open && c.err == nil {
		c.err = fmt.Errorf("pass begun before the previous pass ended")
	}
	c.open = true
}

// use validates h and marks it (and, for bind groups, everything it binds) as referenced.
func (c *commands) use(op string, h Handle, kind resourceKind) bool {
	if c.err != nil {
		return false
	}
	c.r.mu.Lock()
	defer c.r.mu.Unlock()

	res, err := c.r.lookup(op, h, kind)
	if err != nil {
		c.err = common.Transient(op, err)
		return false
	}
	c.used[h] = struct{}{}
	if kind == kindBindGroup {
		c.used[res.bindGroup.Pipeline] = struct{}{}
		for _, e := range res.bindGroup.Entries {
			for _, ref := range [...]Handle{e.Buffer, e.Texture, e.Sampler} {
				if ref.Valid() {
					c.used[ref] = struct{}{}
				}
			}
		}
	}
	return true
}

type computePass struct {
	c   *commands
	dev ComputePass
}

func (p *computePass) SetPipeline(pipeline Handle) {
	if p.c.use("set compute pipeline", pipeline, kindPipeline) {
		p.dev.SetPipeline(pipeline)
	}
}

func (p *computePass) SetBindGroup(index uint32, group Handle) {
	if p.c.use("set bind group", group, kindBindGroup) {
		p.dev.SetBindGroup(index, group)
	}
}

func (p *computePass) DispatchWorkgroups(x, y, z uint32) {
	if p.c.err == nil && x > 0 && y > 0 && z > 0 {
		p.dev.DispatchWorkgroups(x, y, z)
	}
}

func (p *computePass) End() {
	p.dev.End()
	p.c.open = false
}

type renderPass struct {
	c   *commands
	dev RenderPass
}

func (p *renderPass) SetPipeline(pipeline Handle) {
	if p.c.use("set render pipeline", pipeline, kindPipeline) {
		p.dev.SetPipeline(pipeline)
	}
}

func (p *renderPass) SetBindGroup(index uint32, group Handle) {
	if p.c.use("set bind group", group, kindBindGroup) {
		p.dev.SetBindGroup(index, group)
	}
}

func (p *renderPass) SetVertexBuffer(slot uint32, buffer Handle) {
	if p.c.use("set vertex buffer", buffer, kindBuffer) {
		p.dev.SetVertexBuffer(slot, buffer)
	}
}

func (p *renderPass) SetIndexBuffer(buffer Handle) {
	if p.c.use("set index buffer", buffer, kindBuffer) {
		p.dev.SetIndexBuffer(buffer)
	}
}

func (p *renderPass) SetScissorRect(x, y, width, height uint32) {
	if p.c.err == nil {
		p.dev.SetScissorRect(x, y, width, height)
	}
}

func (p *renderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if p.c.err == nil && vertexCount > 0 && instanceCount > 0 {
		p.dev.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	}
}

func (p *renderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	if p.c.err == nil && indexCount > 0 && instanceCount > 0 {
		p.dev.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	}
}

func (p *renderPass) End() {
	p.dev.End()
	p.c.open = false
}
