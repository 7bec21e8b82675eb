package scene

import (
	"github.com/HugoPeters1024/vk-rays/types"
)

// QuadMesh returns a unit quad in the XZ plane facing +Y, centered on
// the origin, using the given material.
func QuadMesh(name string, material uint32) *Mesh {
	n := types.XYZ(0, 1, 0)
	return &Mesh{
		Name: name,
		Vertices: []Vertex{
			{Position: types.XYZ(-0.5, 0, -0.5), Normal: n, UV: types.XY(0, 0)},
			{Position: types.XYZ(0.5, 0, -0.5), Normal: n, UV: types.XY(1, 0)},
			{Position: types.XYZ(0.5, 0, 0.5), Normal: n, UV: types.XY(1, 1)},
			{Position: types.XYZ(-0.5, 0, 0.5), Normal: n, UV: types.XY(0, 1)},
		},
		Indices: []uint32{0, 2, 1, 0, 3, 2},
		Blocks: []GeometryBlock{
			{FirstIndex: 0, IndexCount: 6, MaterialIndex: material},
		},
	}
}

// BuildDemoScene assembles the built-in scene: a grey floor, a mirror
// sphere, a glass sphere and a quad light overhead, with the camera
// pulled back to frame them.
func BuildDemoScene() (*Scene, error) {
	sc := NewScene()

	floorMat := sc.AddMaterial(Material{
		Name:         "floor",
		BaseColor:    types.XYZW(0.8, 0.8, 0.8, 1),
		Roughness:    1,
		TextureIndex: NoTexture,
	})
	mirrorMat := sc.AddMaterial(Material{
		Name:         "mirror",
		BaseColor:    types.XYZW(0.95, 0.95, 0.95, 1),
		Metallic:     1,
		TextureIndex: NoTexture,
	})
	glassMat := sc.AddMaterial(Material{
		Name:         "glass",
		BaseColor:    types.XYZW(1, 1, 1, 1),
		Transmission: 1,
		TextureIndex: NoTexture,
	})
	lightMat := sc.AddMaterial(Material{
		Name:         "light",
		BaseColor:    types.XYZW(1, 1, 1, 1),
		Emission:     types.XYZ(12, 11, 10),
		TextureIndex: NoTexture,
	})

	floorIdx, err := sc.AddMesh(QuadMesh("floor", floorMat))
	if err != nil {
		return nil, err
	}
	lightIdx, err := sc.AddMesh(QuadMesh("light", lightMat))
	if err != nil {
		return nil, err
	}

	if _, err = sc.AddSphere(Sphere{Center: types.XYZ(-1.2, 1, 0), Radius: 1, MaterialIndex: mirrorMat}); err != nil {
		return nil, err
	}
	if _, err = sc.AddSphere(Sphere{Center: types.XYZ(1.2, 1, 0), Radius: 1, MaterialIndex: glassMat}); err != nil {
		return nil, err
	}

	floor := NewInstance(floorIdx)
	floor.Name = "floor"
	floor.Transform = types.TransformFromMat4(scaleMat(20, 1, 20))
	if _, err = sc.AddInstance(floor); err != nil {
		return nil, err
	}

	light := NewInstance(lightIdx)
	light.Name = "light"
	light.Transform = types.TransformFromMat4(
		translateMat(0, 5, 0).Mul4(scaleMat(4, -1, 4)))
	if _, err = sc.AddInstance(light); err != nil {
		return nil, err
	}

	spheres := NewSphereInstance()
	spheres.Name = "spheres"
	if _, err = sc.AddInstance(spheres); err != nil {
		return nil, err
	}

	sc.Camera.Position = types.XYZ(0, 2, 6)
	sc.Camera.LookAt(types.XYZ(0, 1, 0))
	return sc, nil
}

func scaleMat(x, y, z float32) types.Mat4 {
	var m types.Mat4
	m[0] = x
	m[5] = y
	m[10] = z
	m[15] = 1
	return m
}

func translateMat(x, y, z float32) types.Mat4 {
	m := scaleMat(1, 1, 1)
	m[12] = x
	m[13] = y
	m[14] = z
	return m
}
