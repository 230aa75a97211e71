// This file is part of go-mc/server project.
// Copyright (C) 2023.  Tnze
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Йоу, чат! Евристика вирішує де різати групу елементів на дві половинки.
// Від неї залежить наскільки "щільними" будуть коробки і як швидко
// працюватимуть запити. У нас є дві:
// - Median: ділимо навпіл по найдовшій осі (швидко, завжди збалансовано)
// - SAH: рахуємо "вартість" розрізу через площу поверхні (повільніше, але дерево краще)

package bvh

// Partition - вигляд на поточний відрізок елементів, як sort.Interface.
// Swap переставляє і елементи, і їх коробки разом.
type Partition interface {
	Len() int
	Box(i int) Aabb
	Swap(i, j int)
}

// Heuristic переставляє елементи і повертає точку розрізу mid:
// ліва половина [0, mid), права [mid, Len).
// Якщо mid <= 0 або mid >= Len, будівельник сам поріже по медіані.
type Heuristic interface {
	Split(p Partition) int
}

// centroidBounds повертає коробку навколо центрів усіх елементів.
func centroidBounds(p Partition) Aabb {
	cb := Null
	for i := 0; i < p.Len(); i++ {
		cb = cb.Union(Point(p.Box(i).Mid()))
	}
	return cb
}

func centroid(b Aabb, axis int) float32 {
	return (b.Min[axis] + b.Max[axis]) * 0.5
}

// Median - тривіальна евристика: медіана центрів по найдовшій осі.
// Завжди повертає Len/2, тому дерево збалансоване і глибина ~log2(n).
type Median struct{}

func (Median) Split(p Partition) int {
	n := p.Len()
	k := n / 2
	cb := centroidBounds(p)
	axis := cb.LongestAxis()
	if !(cb.Size()[axis] > 0) {
		// Всі центри в одній точці - розділяти нема по чому,
		// ріжемо по індексу, щоб рекурсія точно закінчилась
		return k
	}
	selectNth(p, axis, k)
	return k
}

// selectNth ставить на позицію k елемент, який був би там після сортування
// за центром по осі axis. Менші зліва, більші справа (quickselect).
// Трьохстороннє розбиття не деградує коли багато гравців стоїть в одній точці.
func selectNth(p Partition, axis, k int) {
	key := func(i int) float32 { return centroid(p.Box(i), axis) }
	lo, hi := 0, p.Len()-1
	for lo < hi {
		pivot := medianOf3(key(lo), key(lo+(hi-lo)/2), key(hi))
		lt, i, gt := lo, lo, hi
		for i <= gt {
			switch v := key(i); {
			case v < pivot:
				p.Swap(lt, i)
				lt++
				i++
			case v > pivot:
				p.Swap(i, gt)
				gt--
			default:
				i++
			}
		}
		// [lo, lt) < pivot, [lt, gt] == pivot, (gt, hi] > pivot
		switch {
		case k < lt:
			hi = lt - 1
		case k > gt:
			lo = gt + 1
		default:
			return
		}
	}
}

func medianOf3(a, b, c float32) float32 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	return max(a, b)
}

// maxBins - верхня межа кількості кошиків SAH.
const maxBins = 32

// SAH - binned surface area heuristic.
// Елементи розкладаються по Bins кошиках вздовж найдовшої осі центрів,
// і вибирається межа між кошиками з найменшою вартістю
// count(left)*area(left) + count(right)*area(right).
type SAH struct {
	Bins int // 0 означає 12
}

func (h SAH) Split(p Partition) int {
	n := p.Len()
	cb := centroidBounds(p)
	axis := cb.LongestAxis()
	extent := cb.Size()[axis]
	if !(extent > 0) {
		return 0
	}
	bins := h.Bins
	if bins <= 1 {
		bins = 12
	}
	bins = min(bins, maxBins)

	scale := float32(bins) / extent
	binOf := func(i int) int {
		b := int((centroid(p.Box(i), axis) - cb.Min[axis]) * scale)
		return min(max(b, 0), bins-1)
	}

	var (
		boxes  [maxBins]Aabb
		counts [maxBins]int
	)
	for i := range boxes[:bins] {
		boxes[i] = Null
	}
	for i := 0; i < n; i++ {
		b := binOf(i)
		counts[b]++
		boxes[b] = boxes[b].Union(p.Box(i))
	}

	// Прохід справа наліво: площа і кількість всього, що правіше межі s
	var (
		rightArea  [maxBins]float32
		rightCount [maxBins]int
	)
	acc, cnt := Null, 0
	for s := bins - 1; s > 0; s-- {
		acc = acc.Union(boxes[s])
		cnt += counts[s]
		rightArea[s-1] = acc.SurfaceArea()
		rightCount[s-1] = cnt
	}

	best, bestCost := -1, float32(0)
	acc, cnt = Null, 0
	for s := 0; s < bins-1; s++ {
		acc = acc.Union(boxes[s])
		cnt += counts[s]
		if cnt == 0 || rightCount[s] == 0 {
			continue
		}
		cost := float32(cnt)*acc.SurfaceArea() + float32(rightCount[s])*rightArea[s]
		if best < 0 || cost < bestCost {
			best, bestCost = s, cost
		}
	}
	if best < 0 {
		return 0
	}

	i, j := 0, n-1
	for i <= j {
		if binOf(i) <= best {
			i++
		} else {
			p.Swap(i, j)
			j--
		}
	}
	return i
}
